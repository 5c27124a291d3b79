// Package jobs holds scheduled maintenance work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"authservice/internal/utils"
)

// TokenPurger is the slice of the token engine cleanup needs.
type TokenPurger interface {
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler runs token cleanup on a cron spec.
type Scheduler struct {
	cron      *cron.Cron
	tokens    TokenPurger
	retention time.Duration
	clock     utils.Clock
	timeout   time.Duration
	log       *zap.Logger
}

func NewScheduler(tokens TokenPurger, retention time.Duration, clock utils.Clock, log *zap.Logger) *Scheduler {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		tokens:    tokens,
		retention: retention,
		clock:     clock,
		timeout:   time.Minute,
		log:       log.Named("jobs"),
	}
}

// Schedule registers cleanup under spec ("@hourly", "0 */6 * * *", ...).
func (s *Scheduler) Schedule(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.PurgeTokens); err != nil {
		return fmt.Errorf("schedule token cleanup %q: %w", spec, err)
	}
	s.log.Info("token cleanup scheduled", zap.String("spec", spec), zap.Duration("retention", s.retention))
	return nil
}

func (s *Scheduler) PurgeTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	before := s.clock.Now().Add(-s.retention)
	n, err := s.tokens.PurgeStale(ctx, before)
	if err != nil {
		s.log.Error("token cleanup failed", zap.Error(err))
		return
	}
	s.log.Debug("token cleanup done", zap.Int64("deleted", n), zap.Time("before", before))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
