// Package storage defines the durable key-scoped store that holds the
// session credentials between runs.
package storage

import (
	"context"
	"errors"
	"sync"
)

// Persisted keys.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// SessionKeys lists every key owned by the session, in the order they are cleared.
var SessionKeys = []string{KeyToken, KeyRefreshToken, KeyUser}

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a small durable string map.
type Store interface {
	// Get returns the value of key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Close releases the backend.
	Close() error
}

// Memory is an in-process Store. It is used when nothing should survive the
// process, and in tests.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory { return &Memory{m: make(map[string]string)} }

func (s *Memory) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *Memory) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Memory) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.m, k)
	}
	s.mu.Unlock()
	return nil
}

func (s *Memory) Close() error { return nil }

// Lookup is Get with ErrNotFound folded into an empty value.
func Lookup(ctx context.Context, s Store, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
