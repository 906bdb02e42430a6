package limiter

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	fails        int
	blockedUntil time.Time
	updatedAt    time.Time
}

// Memory is an in-process Limiter with a sliding failure window and lockout.
type Memory struct {
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time

	mu sync.Mutex
	m  map[string]*entry
}

var _ Limiter = (*Memory)(nil)

// NewMemory constructs an in-memory limiter. maxFails failures within window
// block the (login, ip) pair for blockFor.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	return &Memory{window: window, maxFails: maxFails, blockFor: blockFor, now: time.Now, m: map[string]*entry{}}
}

func key(login string, ipHash []byte) string { return login + "\x00" + string(ipHash) }

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *Memory) Allow(_ context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.m[key(login, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success resets counters for (login, ip).
func (l *Memory) Success(_ context.Context, login string, ipHash []byte) error {
	l.mu.Lock()
	delete(l.m, key(login, ipHash))
	l.mu.Unlock()
	return nil
}

// Failure records a failed attempt; may set a block until a future time.
func (l *Memory) Failure(_ context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	k := key(login, ipHash)
	e, ok := l.m[k]
	if !ok || now.Sub(e.updatedAt) > l.window {
		e = &entry{}
		l.m[k] = e
	}
	e.fails++
	e.updatedAt = now
	if e.fails >= l.maxFails {
		e.blockedUntil = now.Add(l.blockFor)
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
