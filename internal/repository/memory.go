package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryRunLock guards runs within a single process.
type MemoryRunLock struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

func NewMemoryRunLock() *MemoryRunLock {
	return &MemoryRunLock{
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

func (l *MemoryRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.locks[key]; ok && now.Before(entry.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.locks[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *MemoryRunLock) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.locks[key]; ok && entry.token == token {
		delete(l.locks, key)
	}
	return nil
}
