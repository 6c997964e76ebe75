package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionPurger deletes expired sessions
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SweepRecorder counts purged sessions
type SweepRecorder interface {
	RecordSessionsPurged(n int64)
}

// SessionSweeper periodically removes expired sessions from the database
type SessionSweeper struct {
	sessions SessionPurger
	recorder SweepRecorder
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSessionSweeper creates a new session sweeper. recorder may be nil.
func NewSessionSweeper(sessions SessionPurger, recorder SweepRecorder, logger *slog.Logger, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a sweep immediately and then on every tick until Stop or ctx is done
func (s *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopCh:
			s.logger.Info("session sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("session sweeper context cancelled")
			return
		}
	}
}

// Sweep performs a single purge and returns the number of sessions removed
func (s *SessionSweeper) Sweep(ctx context.Context) int64 {
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	removed, err := s.sessions.PurgeExpired(sweepCtx)
	if err != nil {
		s.logger.Error("failed to purge expired sessions", slog.Any("error", err))
		return 0
	}

	if removed > 0 {
		s.logger.Info("expired sessions purged", slog.Int64("rows_deleted", removed))
		if s.recorder != nil {
			s.recorder.RecordSessionsPurged(removed)
		}
	}
	return removed
}

// Stop signals the sweeper to stop. Safe to call more than once.
func (s *SessionSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
