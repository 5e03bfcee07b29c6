// Package scheduler runs periodic tournament maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// TournamentStarter is the part of the tournament service the scheduler drives.
type TournamentStarter interface {
	StartDueTournaments(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	starter TournamentStarter
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New registers the status job under spec, e.g. "@every 1m" or "*/5 * * * *".
func New(spec string, starter TournamentStarter, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		starter: starter,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid status schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	started, err := s.starter.StartDueTournaments(s.ctx)
	if err != nil {
		s.logger.Error("scheduler: status update failed", slog.Any("error", err))
		return
	}
	if started > 0 {
		s.logger.Info("scheduler: tournaments started", slog.Int("count", started))
	}
}

// Start runs the job once immediately, then on schedule.
func (s *Scheduler) Start() {
	s.logger.Info("tournament status scheduler started")
	go s.runOnce()
	s.cron.Start()
}

// Stop cancels the running job and waits for it to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
