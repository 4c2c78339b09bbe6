// Package daemon runs a task repeatedly on an interval or cron schedule
// until its context is cancelled or it is interrupted.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var (
	// ErrInterrupted is returned by Run and RunOnce once Interrupt was called.
	ErrInterrupted = errors.New("daemon: interrupted")
	// ErrRunning is returned when Run is entered twice.
	ErrRunning = errors.New("daemon: already running")
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context) error

// Config controls scheduling. Exactly one of Interval or Schedule is set.
//
// Schedule accepts cron expressions with an optional seconds field and the
// usual descriptors:
//   - "0 */5 * * * *"   - every 5 minutes
//   - "@hourly"         - every hour
//   - "0 18 * * MON-FRI" - 18:00 on weekdays
type Config struct {
	Name     string
	Interval time.Duration
	Schedule string
	// RunOnStart executes the task once before the first scheduled tick.
	RunOnStart bool
	// StopOnError interrupts the daemon on the first failed run.
	StopOnError bool
	// Timeout bounds each run; zero means no limit.
	Timeout time.Duration
}

// Stats summarises past runs.
type Stats struct {
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	LastRunID    string        `json:"last_run_id,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
	LastStarted  time.Time     `json:"last_started,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
}

// Daemon is an interruptible scheduled runner.
type Daemon struct {
	cfg      Config
	task     Task
	schedule cron.Schedule
	log      zerolog.Logger

	running     atomic.Bool
	interrupted atomic.Bool
	once        sync.Once
	done        chan struct{}

	mu      sync.Mutex
	stats   Stats
	stopErr error
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// intervalSchedule fires a fixed duration after each activation. Unlike
// cron.Every it keeps sub-second precision.
type intervalSchedule time.Duration

func (s intervalSchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(s))
}

// New validates cfg and returns a stopped daemon.
func New(cfg Config, task Task, log zerolog.Logger) (*Daemon, error) {
	if task == nil {
		return nil, fmt.Errorf("daemon.New: nil task")
	}
	if cfg.Name == "" {
		cfg.Name = "daemon"
	}

	var sched cron.Schedule
	switch {
	case cfg.Interval != 0 && cfg.Schedule != "":
		return nil, fmt.Errorf("daemon.New: set either interval or schedule, not both")
	case cfg.Interval < 0:
		return nil, fmt.Errorf("daemon.New: negative interval %s", cfg.Interval)
	case cfg.Interval > 0:
		sched = intervalSchedule(cfg.Interval)
	case cfg.Schedule != "":
		s, err := cronParser.Parse(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("daemon.New: schedule %q: %w", cfg.Schedule, err)
		}
		sched = s
	default:
		return nil, fmt.Errorf("daemon.New: interval or schedule is required")
	}

	return &Daemon{
		cfg:      cfg,
		task:     task,
		schedule: sched,
		log:      log.With().Str("component", "daemon").Str("daemon", cfg.Name).Logger(),
		done:     make(chan struct{}),
	}, nil
}

// Run starts the schedule and blocks until ctx is cancelled or Interrupt is
// called. In-flight runs are cancelled and awaited before Run returns. The
// result is nil on a clean stop and the failing run's error when
// StopOnError ended the daemon.
func (d *Daemon) Run(ctx context.Context) error {
	if d.Interrupted() {
		return ErrInterrupted
	}
	if !d.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer d.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cl := cronLogger{log: d.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	job := cron.FuncJob(func() {
		_ = d.execute(runCtx)
	})
	c.Schedule(d.schedule, job)

	d.log.Info().
		Dur("interval", d.cfg.Interval).
		Str("schedule", d.cfg.Schedule).
		Msg("Daemon started")

	if d.cfg.RunOnStart {
		cron.NewChain(cron.Recover(cl)).Then(job).Run()
	}
	c.Start()

	select {
	case <-ctx.Done():
	case <-d.done:
	}
	cancel()
	<-c.Stop().Done()

	d.log.Info().Msg("Daemon stopped")
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopErr
}

// RunOnce executes the task immediately, outside the schedule.
func (d *Daemon) RunOnce(ctx context.Context) error {
	if d.Interrupted() {
		return ErrInterrupted
	}
	return d.execute(ctx)
}

// Interrupt stops a running daemon and prevents further runs. It is safe to
// call repeatedly and from any goroutine.
func (d *Daemon) Interrupt() {
	d.once.Do(func() {
		d.interrupted.Store(true)
		close(d.done)
		d.log.Info().Msg("Daemon interrupted")
	})
}

// Interrupted reports whether Interrupt has been called.
func (d *Daemon) Interrupted() bool {
	return d.interrupted.Load()
}

// Stats returns a copy of the run counters.
func (d *Daemon) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// NextRun is the first scheduled activation after t.
func (d *Daemon) NextRun(t time.Time) time.Time {
	return d.schedule.Next(t)
}

func (d *Daemon) execute(ctx context.Context) error {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	id := uuid.NewString()
	log := d.log.With().Str("run_id", id).Logger()
	start := time.Now()
	log.Debug().Msg("Running task")

	err := d.runTask(log.WithContext(ctx))
	elapsed := time.Since(start)

	d.mu.Lock()
	d.stats.Runs++
	d.stats.LastRunID = id
	d.stats.LastStarted = start
	d.stats.LastDuration = elapsed
	d.stats.LastError = ""
	if err != nil {
		d.stats.Failures++
		d.stats.LastError = err.Error()
	}
	d.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("Task failed")
		if d.cfg.StopOnError {
			d.mu.Lock()
			if d.stopErr == nil {
				d.stopErr = fmt.Errorf("daemon %s: run %s: %w", d.cfg.Name, id, err)
			}
			d.mu.Unlock()
			d.Interrupt()
		}
		return err
	}
	log.Debug().Dur("elapsed", elapsed).Msg("Task completed")
	return nil
}

// runTask turns a panicking task into a failed run.
func (d *Daemon) runTask(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return d.task(ctx)
}

// cronLogger routes cron's internal logging through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
