// Package schedule runs the watcher periodically for daemon mode.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/obentoo/nugetwatch/internal/common/logger"
	"github.com/obentoo/nugetwatch/internal/watch"
)

// Error variables for schedule errors
var (
	// ErrEmptySchedule is returned when no cron expression is configured
	ErrEmptySchedule = errors.New("schedule is empty")
	// ErrScheduleFields is returned when the expression does not have six fields
	ErrScheduleFields = errors.New("schedule must have six fields, seconds first")
)

// cronFields is the field count of a cron expression with seconds
const cronFields = 6

// Runner performs one invocation.
type Runner interface {
	Run(ctx context.Context) (*watch.Result, error)
}

// Scheduler wraps a gocron scheduler holding a single watch job.
type Scheduler struct {
	scheduler gocron.Scheduler
	runner    Runner
	log       *logger.Logger
	job       gocron.Job

	mu   sync.Mutex
	last *Status
}

// Status describes the most recent scheduled invocation.
type Status struct {
	StartedAt time.Time
	Result    *watch.Result
	Err       error
}

// Option is a functional option for configuring Scheduler
type Option func(*options)

type options struct {
	runNow   bool
	location *time.Location
	log      *logger.Logger
}

// WithRunNow runs the first invocation as soon as the scheduler starts
func WithRunNow(enabled bool) Option {
	return func(o *options) { o.runNow = enabled }
}

// WithLocation sets the time zone the cron expression is evaluated in
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New creates a scheduler that calls runner.Run on every tick of the
// six-field cron expression (seconds first).
func New(ctx context.Context, crontab string, runner Runner, opts ...Option) (*Scheduler, error) {
	crontab = strings.TrimSpace(crontab)
	if crontab == "" {
		return nil, ErrEmptySchedule
	}
	if n := len(strings.Fields(crontab)); n != cronFields {
		return nil, fmt.Errorf("%w: %q has %d", ErrScheduleFields, crontab, n)
	}

	o := options{location: time.Local, log: logger.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	gs, err := gocron.NewScheduler(gocron.WithLocation(o.location))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	s := &Scheduler{scheduler: gs, runner: runner, log: o.log}

	jobOpts := []gocron.JobOption{gocron.WithName("nugetwatch")}
	if o.runNow {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := gs.NewJob(
		gocron.CronJob(crontab, true),
		gocron.NewTask(func() { s.execute(ctx) }),
		jobOpts...,
	)
	if err != nil {
		_ = gs.Shutdown()
		return nil, fmt.Errorf("invalid schedule %q: %w", crontab, err)
	}
	s.job = job
	return s, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.log.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running invocation to finish.
func (s *Scheduler) Stop() error {
	s.log.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// NextRun returns the time of the next scheduled invocation.
func (s *Scheduler) NextRun() (time.Time, error) {
	return s.job.NextRun()
}

// Last returns the most recent invocation, or nil before the first one.
func (s *Scheduler) Last() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	last := *s.last
	return &last
}

func (s *Scheduler) execute(ctx context.Context) {
	status := &Status{StartedAt: time.Now()}
	s.log.Debug("Executing scheduled check")

	status.Result, status.Err = s.runner.Run(ctx)
	switch {
	case status.Err != nil:
		s.log.Error("Scheduled check failed: %v", status.Err)
	default:
		s.log.Info("Scheduled check finished: %s", status.Result.Outcome)
	}

	s.mu.Lock()
	s.last = status
	s.mu.Unlock()
}
