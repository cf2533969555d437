package activity

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const (
	keyPrefix  = "activity:user:"
	maxRetries = 5
)

// RedisStore はアクティビティを Redis に保存します。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Get はアクティビティを取得します。記録がない場合は nil を返します。
func (s *RedisStore) Get(ctx context.Context, userID int) (*Entry, error) {
	data, err := s.rdb.Get(ctx, entryKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, oops.Code("ACTIVITY_READ_FAILED").With("user_id", userID).Wrap(err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, oops.Code("ACTIVITY_DECODE_FAILED").With("user_id", userID).Wrap(err)
	}
	return &entry, nil
}

// RecordLogin はログイン日時を記録し、更新後の内容を返します。
func (s *RedisStore) RecordLogin(ctx context.Context, userID int) (*Entry, error) {
	return s.update(ctx, userID, func(entry *Entry) {
		applyLogin(entry, s.now())
	})
}

// RecordLogout はログアウト日時を記録します。
func (s *RedisStore) RecordLogout(ctx context.Context, userID int) error {
	_, err := s.update(ctx, userID, func(entry *Entry) {
		applyLogout(entry, s.now())
	})
	return err
}

// update は WATCH で楽観ロックをかけて読み込み・変更・保存を行います。
func (s *RedisStore) update(ctx context.Context, userID int, mutate func(*Entry)) (*Entry, error) {
	key := entryKey(userID)
	var result Entry

	txf := func(tx *redis.Tx) error {
		entry := Entry{UserID: userID}
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, &entry); err != nil {
				return err
			}
		}

		mutate(&entry)
		payload, err := json.Marshal(&entry)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err == nil {
			result = entry
		}
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, oops.Code("ACTIVITY_WRITE_FAILED").With("user_id", userID).Wrap(err)
		}
		return &result, nil
	}
	return nil, oops.Code("ACTIVITY_WRITE_CONFLICT").With("user_id", userID).Errorf("too many concurrent updates")
}

func entryKey(userID int) string {
	return keyPrefix + strconv.Itoa(userID)
}
