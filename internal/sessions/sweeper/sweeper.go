// Package sweeper runs the auto-complete sweep on a cron schedule.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"telehealth/pkg/logger"
)

// Completer is the part of the session service the sweep needs.
type Completer interface {
	AutoComplete(ctx context.Context, now time.Time) (int, error)
}

type Sweeper struct {
	completer Completer
	log       *logger.Logger
	timeout   time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

// New schedules the sweep. Overlapping runs are skipped and a panicking run is
// logged instead of taking the process down.
func New(completer Completer, schedule string, loc *time.Location, timeout time.Duration, log *logger.Logger) (*Sweeper, error) {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log}
	s := &Sweeper{
		completer: completer,
		log:       log,
		timeout:   timeout,
		now:       time.Now,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}

	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run performs one sweep.
func (s *Sweeper) Run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := s.now()
	completed, err := s.completer.AutoComplete(ctx, started)
	if err != nil {
		s.log.Error("Auto-complete sweep failed", "completed", completed, "error", err)
		return
	}
	s.log.Debug("Auto-complete sweep finished", "completed", completed, "duration", time.Since(started))
}

func (s *Sweeper) Start() {
	s.log.Info("Starting auto-complete sweeper", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop prevents new runs and waits for a running sweep until ctx is done.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("Auto-complete sweeper stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sweeper did not stop in time: %w", ctx.Err())
	}
}

// cronLogger feeds cron's own messages into the service logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
