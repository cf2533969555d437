package auth

import (
	"sync"
	"time"
)

const loginWindow = 15 * time.Minute

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// Throttle はクライアントIPごとのログイン失敗回数を数え、上限に達したら一定時間ロックします。
// maxAttempts が 0 以下の場合は何もしません。
type Throttle struct {
	maxAttempts  int
	lockDuration time.Duration
	now          func() time.Time

	lock     sync.Mutex
	attempts map[string]*attemptState
}

// NewThrottle は Throttle を作成します。
func NewThrottle(maxAttempts int, lockDuration time.Duration) *Throttle {
	return &Throttle{
		maxAttempts:  maxAttempts,
		lockDuration: lockDuration,
		now:          time.Now,
		attempts:     make(map[string]*attemptState),
	}
}

func (t *Throttle) enabled() bool {
	return t != nil && t.maxAttempts > 0
}

// Check はロック中であれば残り時間を返します。
func (t *Throttle) Check(key string) time.Duration {
	if !t.enabled() {
		return 0
	}
	t.lock.Lock()
	defer t.lock.Unlock()

	state, ok := t.attempts[key]
	if !ok {
		return 0
	}
	now := t.now()
	if !now.Before(state.lockedUntil) {
		return 0
	}
	return state.lockedUntil.Sub(now)
}

// RecordFailure は失敗を記録し、ロックまでの残り回数を返します。
func (t *Throttle) RecordFailure(key string) int {
	if !t.enabled() {
		return 0
	}
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.now()
	state, ok := t.attempts[key]
	if !ok || (now.Sub(state.firstAttempt) > loginWindow && !now.Before(state.lockedUntil)) {
		state = &attemptState{firstAttempt: now}
		t.attempts[key] = state
	}

	state.count++
	if state.count >= t.maxAttempts {
		state.lockedUntil = now.Add(t.lockDuration)
		state.count = t.maxAttempts
	}

	remaining := t.maxAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Reset は記録を消去します。
func (t *Throttle) Reset(key string) {
	if !t.enabled() {
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	delete(t.attempts, key)
}
