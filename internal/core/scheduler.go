package core

// scheduler.go runs background maintenance for the Service.
//
// Sessions live only in memory. The sweeper drops sessions idle for longer
// than the configured TTL so abandoned uploads do not pin their buffers.
// It runs until its context is cancelled and never stops the process on
// failure.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = time.Minute

// StartSessionSweeper expires idle sessions every interval until ctx ends.
// It blocks; run it in its own goroutine.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session sweeper started", "interval", interval, "ttl", s.opts.SessionTTL)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if n := s.Sweep(); n > 0 {
				slog.Info("expired idle sessions",
					"expired", n,
					"remaining", s.Len(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}

// Sweep closes every session idle for longer than the TTL and returns how
// many were closed.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.opts.SessionTTL)

	s.mu.RLock()
	candidates := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.RUnlock()

	var idle []*Session
	for _, sess := range candidates {
		if sess.LastAccess().Before(cutoff) {
			idle = append(idle, sess)
		}
	}
	if len(idle) == 0 {
		return 0
	}

	// Expiry is decided again under both locks. A session locked by a
	// request is in use and stays.
	var expired []*Session
	s.mu.Lock()
	for _, sess := range idle {
		if !sess.mu.TryLock() {
			continue
		}
		if !sess.closed && sess.lastAccess.Before(cutoff) {
			sess.closed = true
			delete(s.sessions, sess.ID)
			expired = append(expired, sess)
		}
		sess.mu.Unlock()
	}
	s.mu.Unlock()

	for _, sess := range expired {
		if err := sess.release(); err != nil {
			slog.Warn("release expired session", "session_id", sess.ID, "error", err)
		}
	}
	return len(expired)
}
