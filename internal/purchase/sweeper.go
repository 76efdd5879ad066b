package purchase

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically fails attempts stuck in a pending state past the
// confirmation timeout. It covers attempts orphaned by a process restart;
// live attempts time out through the orchestrator's own wait.
type Sweeper struct {
	cron    *cron.Cron
	repo    Repository
	timeout time.Duration
	logger  *zap.Logger
}

// NewSweeper creates the stale-attempt sweeper.
func NewSweeper(repo Repository, timeout time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		repo:    repo,
		timeout: timeout,
		logger:  logger,
	}
}

// Start schedules the sweep once a minute.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@every 1m", s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.timeout)
	count, err := s.repo.TimeOutStalePending(ctx, cutoff)
	if err != nil {
		s.logger.Error("Stale attempt sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		s.logger.Warn("Timed out stale pending attempts", zap.Int64("count", count))
	}
}
