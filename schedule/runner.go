package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RunnerConfig controls the timer wiring around the two jobs.
type RunnerConfig struct {
	// TransitionInterval is the short-interval cadence of the
	// transition/notification job.
	TransitionInterval time.Duration
	// ReminderAnchorHour is the UTC hour of the once-daily reminder
	// run. Starting after today's anchor defers the first run to
	// tomorrow's anchor.
	ReminderAnchorHour int
}

// Status is the operational snapshot exposed by the runner.
type Status struct {
	Running             bool
	CurrentlyProcessing []string
	Windows             Windows
	ReminderOffsets     []int
	SkippedTicks        int64
}

// Runner owns the timers driving the transition engine and the
// reminder dispatcher, plus the per-job overlap guards. The two jobs
// may run concurrently with each other; two ticks of the same job may
// not.
type Runner struct {
	transition *TransitionEngine
	reminder   *ReminderDispatcher
	cfg        RunnerConfig
	windows    Windows
	log        zerolog.Logger

	transitionGuard Guard
	reminderGuard   Guard

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

func NewRunner(transition *TransitionEngine, reminder *ReminderDispatcher, windows Windows, cfg RunnerConfig, log zerolog.Logger) *Runner {
	if cfg.TransitionInterval <= 0 {
		cfg.TransitionInterval = time.Minute
	}
	return &Runner{
		transition: transition,
		reminder:   reminder,
		cfg:        cfg,
		windows:    windows,
		log:        log,
	}
}

// Start wires both timers and fires an immediate transition tick.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("schedule: runner already started")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.cfg.TransitionInterval), func() {
		r.RunTransitionTick(runCtx)
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule: register transition job: %w", err)
	}
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * *", r.cfg.ReminderAnchorHour), func() {
		r.RunReminderTick(runCtx)
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule: register reminder job: %w", err)
	}

	c.Start()
	r.cron = c
	r.running = true
	r.log.Info().
		Dur("transition_interval", r.cfg.TransitionInterval).
		Int("reminder_anchor_hour", r.cfg.ReminderAnchorHour).
		Msg("scheduler started")

	// Run-now semantics for the short-interval job; cron's first @every
	// fire is one interval away.
	go r.RunTransitionTick(runCtx)
	return nil
}

// Stop halts the timers and waits, bounded by ctx, for in-flight ticks
// to run their batches to completion. Ticks are never cancelled
// mid-batch.
func (r *Runner) Stop(ctx context.Context) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	c := r.cron
	r.cron = nil
	r.running = false
	r.mu.Unlock()

	select {
	case <-c.Stop().Done():
		r.log.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		r.log.Warn().Msg("scheduler stop timed out waiting for in-flight tick")
	}
	if r.cancel != nil {
		r.cancel()
	}
}

// Status reports the operational surface: running flag, which jobs are
// mid-tick, and the configured windows and offsets.
func (r *Runner) Status() Status {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()

	var processing []string
	if r.transitionGuard.Busy() {
		processing = append(processing, "transition")
	}
	if r.reminderGuard.Busy() {
		processing = append(processing, "reminder")
	}

	return Status{
		Running:             running,
		CurrentlyProcessing: processing,
		Windows:             r.windows,
		ReminderOffsets:     r.reminder.Offsets(),
		SkippedTicks:        r.transitionGuard.Skips() + r.reminderGuard.Skips(),
	}
}

// RunTransitionTick executes one guarded transition tick. Overlapping
// invocations are skipped whole, never queued.
func (r *Runner) RunTransitionTick(ctx context.Context) {
	if !r.transitionGuard.TryAcquire() {
		r.log.Info().Str("job", "transition").Msg("previous tick still running, skipping")
		return
	}
	defer r.transitionGuard.Release()

	report := r.transition.Tick(ctx)
	r.log.Debug().
		Str("job", "transition").
		Int("examined", report.Examined).
		Int("transitioned", report.Transitioned).
		Int("notified", report.Notified).
		Int("failed", report.Failed).
		Msg("tick complete")
}

// RunReminderTick executes one guarded reminder tick.
func (r *Runner) RunReminderTick(ctx context.Context) {
	if !r.reminderGuard.TryAcquire() {
		r.log.Info().Str("job", "reminder").Msg("previous tick still running, skipping")
		return
	}
	defer r.reminderGuard.Release()

	report := r.reminder.Tick(ctx)
	r.log.Debug().
		Str("job", "reminder").
		Int("examined", report.Examined).
		Int("notified", report.Notified).
		Int("failed", report.Failed).
		Msg("tick complete")
}
