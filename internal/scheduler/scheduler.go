// Package scheduler runs the periodic send and purge loops. The poll tick is
// deliberately shorter than the export interval; the service's persisted
// interval gate decides whether a tick actually transmits.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mct-integration/orderbridge/internal/config"
	exportsvc "github.com/mct-integration/orderbridge/internal/service/export"
	"github.com/mct-integration/orderbridge/pkg/errorbank"
)

// Scheduler owns the background send and purge tickers.
type Scheduler struct {
	svc    *exportsvc.Service
	cfg    config.Export
	logger *zap.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler constructs the scheduler.
func NewScheduler(svc *exportsvc.Service, cfg config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{svc: svc, cfg: cfg.Export, logger: logger}
}

// Module wires the scheduler into the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewScheduler),
	fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
		lc.Append(fx.Hook{
			OnStart: s.start,
			OnStop:  s.stop,
		})
	}),
)

func (s *Scheduler) start(context.Context) error {
	if !s.cfg.SchedulerEnabled {
		s.logger.Info("scheduler disabled")

		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.loop(runCtx, s.cfg.SendPollInterval, s.runSend)
	}()
	go func() {
		defer s.wg.Done()
		s.loop(runCtx, s.cfg.PurgeInterval, s.runPurge)
	}()

	s.logger.Info("scheduler started",
		zap.Duration("sendPoll", s.cfg.SendPollInterval),
		zap.Duration("purgeInterval", s.cfg.PurgeInterval))

	return nil
}

func (s *Scheduler) stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		s.logger.Info("scheduler stopped")

		return nil
	}
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (s *Scheduler) runSend(ctx context.Context) {
	sent, err := s.svc.SendCycle(ctx, false)
	if errorbank.IsKind(err, errorbank.KindConflict) {
		s.logger.Debug("send cycle already running elsewhere")

		return
	}
	if err != nil {
		s.logger.Error("send cycle failed", zap.Error(err))

		return
	}
	if sent > 0 {
		s.logger.Info("scheduled send cycle transmitted orders", zap.Int("sent", sent))
	}
}

func (s *Scheduler) runPurge(ctx context.Context) {
	if _, err := s.svc.Purge(ctx); err != nil {
		s.logger.Error("scheduled purge failed", zap.Error(err))
	}
}
