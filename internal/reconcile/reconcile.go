// Package reconcile closes the gap left when a persist-user job could not be
// enqueued: the user exists in the cache but has no path to durable storage.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chatterly/registration-service/internal/api/register"
	"github.com/chatterly/registration-service/internal/types"
)

// Sweeper records durability risks and periodically writes the flagged users
// straight to durable storage, bypassing the queue.
type Sweeper struct {
	logger   *slog.Logger
	repo     register.Repository
	cache    register.CredentialCache
	interval time.Duration

	mu      sync.Mutex
	flagged map[string]*types.UserRecord
}

func NewSweeper(repo register.Repository, cache register.CredentialCache, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		logger:   logger,
		repo:     repo,
		cache:    cache,
		interval: interval,
		flagged:  make(map[string]*types.UserRecord),
	}
}

// RecordRisk flags a user whose persist-user job was never acknowledged.
func (s *Sweeper) RecordRisk(user *types.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flagged[user.ID.String()] = user
}

// Pending reports how many users are waiting for reconciliation.
func (s *Sweeper) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flagged)
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep upserts every flagged user, preferring the cached copy when it is
// still readable. Failures stay flagged for the next pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.mu.Lock()
	pending := make(map[string]*types.UserRecord, len(s.flagged))
	for id, u := range s.flagged {
		pending[id] = u
	}
	s.mu.Unlock()

	for id, user := range pending {
		if cached, ok := s.cache.Get(ctx, id); ok {
			user = cached
		}

		if err := s.repo.UpsertUser(ctx, user); err != nil {
			s.logger.WarnContext(ctx, "Reconciliation upsert failed, will retry",
				slog.String("user_id", id),
				slog.Any("error", err),
			)
			continue
		}

		s.mu.Lock()
		delete(s.flagged, id)
		s.mu.Unlock()

		s.logger.InfoContext(ctx, "Durability risk reconciled", slog.String("user_id", id))
	}
}
