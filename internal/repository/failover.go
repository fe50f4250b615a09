package repository

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"eventscan/internal/domain"

	"github.com/rs/zerolog"
)

const fallbackTokenPrefix = "local:"

// FailoverRunLock prefers the shared lock and degrades to a process-local one
// while the primary is unreachable.
type FailoverRunLock struct {
	primary   domain.RunLocker
	fallback  domain.RunLocker
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverRunLock(primary, fallback domain.RunLocker, logger *zerolog.Logger) *FailoverRunLock {
	return &FailoverRunLock{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (l *FailoverRunLock) markDown() {
	l.isDown.Store(true)
	l.mu.Lock()
	l.lastCheck = time.Now()
	l.mu.Unlock()
}

func (l *FailoverRunLock) shouldRetryPrimary() bool {
	if !l.isDown.Load() {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Try to recover after 1 minute
	return time.Since(l.lastCheck) > time.Minute
}

func (l *FailoverRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l.shouldRetryPrimary() {
		token, ok, err := l.primary.Acquire(ctx, key, ttl)
		if err == nil {
			l.isDown.Store(false)
			return token, ok, nil
		}
		l.logger.Error().Err(err).Msg("Primary run lock failed, falling back to memory")
		l.markDown()
	}

	token, ok, err := l.fallback.Acquire(ctx, key, ttl)
	if err != nil || !ok {
		return "", ok, err
	}
	return fallbackTokenPrefix + token, true, nil
}

func (l *FailoverRunLock) Release(ctx context.Context, key, token string) error {
	if local, found := strings.CutPrefix(token, fallbackTokenPrefix); found {
		return l.fallback.Release(ctx, key, local)
	}

	if err := l.primary.Release(ctx, key, token); err != nil {
		l.logger.Warn().Err(err).Str("key", key).Msg("Run lock release failed, lock will expire by TTL")
		l.markDown()
		return err
	}
	return nil
}
