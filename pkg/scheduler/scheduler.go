package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper evicts expired entries and reports how many were removed.
type Sweeper interface {
	Sweep() int
}

// MacroRefresher warms macro storage for one country.
type MacroRefresher interface {
	Refresh(ctx context.Context, country string, lookback time.Duration) error
}

type Options struct {
	CacheSweepCron   string
	MacroRefreshCron string
	MacroCountries   []string
	MacroLookback    time.Duration
	JobTimeout       time.Duration
}

// Scheduler runs background maintenance on cron expressions with a seconds field.
type Scheduler struct {
	cron     *cron.Cron
	opts     Options
	sweepers map[string]Sweeper
	macro    MacroRefresher
	ctx      context.Context
}

// New macro may be nil, which skips the refresh job.
func New(ctx context.Context, opts Options, sweepers map[string]Sweeper, macro MacroRefresher) *Scheduler {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 2 * time.Minute
	}
	if opts.MacroLookback <= 0 {
		opts.MacroLookback = 400 * 24 * time.Hour
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		opts:     opts,
		sweepers: sweepers,
		macro:    macro,
		ctx:      ctx,
	}
}

// RegisterAll adds every job with a non-empty schedule.
func (s *Scheduler) RegisterAll() error {
	if s.opts.CacheSweepCron != "" && len(s.sweepers) > 0 {
		if _, err := s.cron.AddFunc(s.opts.CacheSweepCron, s.SweepCaches); err != nil {
			return fmt.Errorf("register cache sweep: %w", err)
		}
	}
	if s.opts.MacroRefreshCron != "" && s.macro != nil && len(s.opts.MacroCountries) > 0 {
		if _, err := s.cron.AddFunc(s.opts.MacroRefreshCron, s.RefreshMacro); err != nil {
			return fmt.Errorf("register macro refresh: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logrus.WithField("jobs", len(s.cron.Entries())).Info("scheduler started")
}

// Stop waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logrus.Info("scheduler stopped")
}

// SweepCaches evicts expired entries from every registered cache.
func (s *Scheduler) SweepCaches() {
	fields := logrus.Fields{}
	for name, sw := range s.sweepers {
		fields[name] = sw.Sweep()
	}
	logrus.WithFields(fields).Debug("cache sweep finished")
}

// RefreshMacro refreshes each configured country; a failing country does not stop the rest.
func (s *Scheduler) RefreshMacro() {
	for _, country := range s.opts.MacroCountries {
		ctx, cancel := context.WithTimeout(s.ctx, s.opts.JobTimeout)
		err := s.macro.Refresh(ctx, country, s.opts.MacroLookback)
		cancel()
		if err != nil {
			logrus.WithError(err).WithField("country", country).Warn("macro refresh failed")
			continue
		}
		logrus.WithField("country", country).Info("macro refreshed")
	}
}
