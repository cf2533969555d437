// Package activity はユーザーごとのログイン・ログアウト履歴を保持します。
package activity

import (
	"context"
	"time"
)

// Entry はユーザー1人分の最新のアクティビティです。
type Entry struct {
	UserID          int        `json:"userId"`
	LoginCount      int        `json:"loginCount"`
	LastLoginAt     time.Time  `json:"lastLoginAt"`
	PreviousLoginAt *time.Time `json:"previousLoginAt,omitempty"`
	LastLogoutAt    *time.Time `json:"lastLogoutAt,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Recorder はアクティビティの記録先です。
type Recorder interface {
	RecordLogin(ctx context.Context, userID int) (*Entry, error)
	RecordLogout(ctx context.Context, userID int) error
	Get(ctx context.Context, userID int) (*Entry, error)
}

func applyLogin(entry *Entry, now time.Time) {
	if entry.LoginCount > 0 {
		prev := entry.LastLoginAt
		entry.PreviousLoginAt = &prev
	}
	entry.LoginCount++
	entry.LastLoginAt = now
	entry.UpdatedAt = now
}

func applyLogout(entry *Entry, now time.Time) {
	entry.LastLogoutAt = &now
	entry.UpdatedAt = now
}
