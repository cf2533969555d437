package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottleDisabled(t *testing.T) {
	th := NewThrottle(0, time.Minute)
	for i := 0; i < 10; i++ {
		th.RecordFailure("1.2.3.4")
	}
	assert.Zero(t, th.Check("1.2.3.4"))

	var nilThrottle *Throttle
	assert.Zero(t, nilThrottle.Check("x"))
	assert.Zero(t, nilThrottle.RecordFailure("x"))
	nilThrottle.Reset("x")
}

func TestThrottleLocksAfterMaxAttempts(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	th := NewThrottle(3, 10*time.Minute)
	th.now = func() time.Time { return now }

	assert.Equal(t, 2, th.RecordFailure("ip"))
	assert.Equal(t, 1, th.RecordFailure("ip"))
	assert.Zero(t, th.Check("ip"))
	assert.Equal(t, 0, th.RecordFailure("ip"))
	assert.Equal(t, 10*time.Minute, th.Check("ip"))

	// 別のIPには影響しない
	assert.Zero(t, th.Check("other"))

	now = now.Add(4 * time.Minute)
	assert.Equal(t, 6*time.Minute, th.Check("ip"))

	now = now.Add(6 * time.Minute)
	assert.Zero(t, th.Check("ip"))
}

func TestThrottleWindowResets(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	th := NewThrottle(3, 10*time.Minute)
	th.now = func() time.Time { return now }

	th.RecordFailure("ip")
	th.RecordFailure("ip")

	now = now.Add(loginWindow + time.Second)
	assert.Equal(t, 2, th.RecordFailure("ip"))
}

func TestThrottleReset(t *testing.T) {
	th := NewThrottle(1, time.Minute)
	th.RecordFailure("ip")
	assert.NotZero(t, th.Check("ip"))

	th.Reset("ip")
	assert.Zero(t, th.Check("ip"))
}
