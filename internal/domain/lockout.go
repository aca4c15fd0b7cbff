package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultMaxFailedAttempts = 3
	DefaultLockWindow        = 5 * time.Minute
)

// LockoutPolicy decides brute-force lockout transitions. It holds no state; callers
// persist the returned values.
type LockoutPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: DefaultMaxFailedAttempts, Window: DefaultLockWindow}
}

// LockState is the lockout part of a user record.
type LockState struct {
	FailedAttempts int
	LockUntil      *time.Time
}

// Locked reports whether the account is locked at now and for how long.
func (p LockoutPolicy) Locked(s LockState, now time.Time) (time.Duration, bool) {
	if s.LockUntil == nil || !s.LockUntil.After(now) {
		return 0, false
	}
	return s.LockUntil.Sub(now), true
}

// OnFailure returns the state after a password mismatch. The threshold is checked
// against the incremented count, so the MaxAttempts-th failure locks.
func (p LockoutPolicy) OnFailure(s LockState, now time.Time) (next LockState, locked bool) {
	next = LockState{FailedAttempts: s.FailedAttempts + 1, LockUntil: s.LockUntil}
	if next.FailedAttempts >= p.MaxAttempts {
		until := now.Add(p.Window)
		next.LockUntil = &until
		return next, true
	}
	return next, false
}

// NeedsReset reports whether a successful login has counters to clear.
func (p LockoutPolicy) NeedsReset(s LockState) bool {
	return s.FailedAttempts > 0 || s.LockUntil != nil
}

// RemainingHint renders a lock duration for users: seconds up to a minute, whole minutes beyond.
func RemainingHint(d time.Duration) string {
	seconds := int(math.Round(d.Seconds()))
	if seconds > 60 {
		minutes := int(math.Round(float64(seconds) / 60))
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d seconds", seconds)
}

func LockedMessage(d time.Duration) string {
	return "The account is locked. Please try again in " + RemainingHint(d) + "."
}
