package activity

import (
	"context"
	"sync"
	"time"
)

// MemoryStore はプロセス内にアクティビティを保持します（Redis 未設定時に使用）。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int]Entry
	now     func() time.Time
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[int]Entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RecordLogin はログイン日時を記録し、更新後の内容を返します。
func (s *MemoryStore) RecordLogin(_ context.Context, userID int) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[userID]
	entry.UserID = userID
	applyLogin(&entry, s.now())
	s.entries[userID] = entry
	return &entry, nil
}

// RecordLogout はログアウト日時を記録します。
func (s *MemoryStore) RecordLogout(_ context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[userID]
	entry.UserID = userID
	applyLogout(&entry, s.now())
	s.entries[userID] = entry
	return nil
}

// Get は記録済みのアクティビティを返します。記録がない場合は nil を返します。
func (s *MemoryStore) Get(_ context.Context, userID int) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}
