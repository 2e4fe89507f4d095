package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"studypulse-backend/internal/metrics"
)

const (
	TickFocusMonitor = "focus_monitor"
	TickDispatch     = "notification_dispatch"
)

// Job is a named periodic tick.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Config struct {
	Enabled     bool
	TickTimeout time.Duration
}

// Scheduler runs each job on its own supervised ticker. A job never overlaps
// itself inside the process, and the optional Locker extends that across
// processes. Stop lets in-flight ticks finish.
type Scheduler struct {
	cfg     Config
	jobs    []Job
	locker  Locker
	logger  zerolog.Logger
	running map[string]*atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   <-chan error
}

func NewScheduler(cfg Config, locker Locker, logger *zerolog.Logger, jobs ...Job) *Scheduler {
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = 90 * time.Second
	}
	running := make(map[string]*atomic.Bool, len(jobs))
	for _, j := range jobs {
		running[j.Name] = &atomic.Bool{}
	}
	return &Scheduler{
		cfg:     cfg,
		jobs:    jobs,
		locker:  locker,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		running: running,
	}
}

// Start launches the supervisor. In disabled mode nothing is scheduled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	if !s.cfg.Enabled {
		s.logger.Info().Msg("scheduler disabled, no ticks will fire")
		return
	}

	sup := suture.New("scheduler", suture.Spec{
		EventHook: func(e suture.Event) {
			s.logger.Warn().Fields(e.Map()).Msg(e.String())
		},
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          s.cfg.TickTimeout + 5*time.Second,
	})
	for _, j := range s.jobs {
		sup.Add(&periodicService{job: j, scheduler: s})
		s.logger.Info().Str("tick", j.Name).Dur("interval", j.Interval).Msg("tick scheduled")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = sup.ServeBackground(runCtx)
}

// Stop cancels the tickers and waits for running ticks to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn().Err(err).Msg("scheduler stopped with error")
	}
	s.logger.Info().Msg("scheduler stopped")
}

// RunExclusive runs fn under the named tick's guards. ran is false when the
// tick is already running here or holds the distributed lock elsewhere.
func (s *Scheduler) RunExclusive(ctx context.Context, name string, fn func(ctx context.Context) error) (ran bool, err error) {
	flag, ok := s.running[name]
	if !ok {
		return false, fmt.Errorf("unknown tick %q", name)
	}
	if !flag.CompareAndSwap(false, true) {
		metrics.TickRuns.WithLabelValues(name, "skipped").Inc()
		s.logger.Warn().Str("tick", name).Msg("previous tick still running, skipping")
		return false, nil
	}
	defer flag.Store(false)

	tickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.TickTimeout)
	defer cancel()

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(tickCtx, lockKey(name), s.cfg.TickTimeout)
		switch {
		case err != nil:
			// The lock is advisory; idempotent writes keep overlapping ticks safe.
			s.logger.Warn().Err(err).Str("tick", name).Msg("tick lock unavailable, running unguarded")
		case !ok:
			metrics.TickRuns.WithLabelValues(name, "skipped").Inc()
			s.logger.Debug().Str("tick", name).Msg("tick held by another instance, skipping")
			return false, nil
		default:
			defer release()
		}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ran = true
			err = fmt.Errorf("tick %s panicked: %v", name, r)
		}
		metrics.TickDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.TickRuns.WithLabelValues(name, "error").Inc()
			s.logger.Error().Err(err).Str("tick", name).Msg("tick failed")
			return
		}
		metrics.TickRuns.WithLabelValues(name, "ok").Inc()
	}()

	return true, fn(tickCtx)
}

type periodicService struct {
	job       Job
	scheduler *Scheduler
}

func (p *periodicService) String() string { return p.job.Name }

func (p *periodicService) Serve(ctx context.Context) error {
	// Run on startup as well as by interval.
	p.scheduler.RunExclusive(ctx, p.job.Name, p.job.Run)

	ticker := time.NewTicker(p.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.scheduler.RunExclusive(ctx, p.job.Name, p.job.Run)
		}
	}
}
