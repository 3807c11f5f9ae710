package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trialflow/notify"
	"trialflow/trial"
)

func newTestRunner(store *fakeStore) *Runner {
	fanout := notify.NewFanout(newFakeWriter(), newFakeMailer(), zerolog.Nop())
	engine := NewTransitionEngine(store, fanout, DefaultOffsets(), DefaultWindows(), zerolog.Nop()).
		WithClock(fixedClock)
	dispatcher := NewReminderDispatcher(store, fanout, DefaultReminderOffsets(), zerolog.Nop()).
		WithClock(fixedClock)
	return NewRunner(engine, dispatcher, DefaultWindows(), RunnerConfig{
		TransitionInterval: time.Minute,
		ReminderAnchorHour: 9,
	}, zerolog.Nop())
}

// Scenario D: a second tick firing while the first tick's batch is
// still running is skipped entirely; no case is processed twice.
func TestRunner_OverlappingTickSkipped(t *testing.T) {
	store := newFakeStore()
	store.addCase(approvedCase("slow", "14:00", trial.StatusAwaitingTrial))
	store.attorneys["slow"] = notify.Recipient{ID: "a1", Type: notify.RecipientAttorney, Email: "a1@firm.example"}

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.listGate = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	r := newTestRunner(store)

	done := make(chan struct{})
	go func() {
		r.RunTransitionTick(context.Background())
		close(done)
	}()
	<-entered

	// First tick is parked inside the store; this one must be rejected.
	r.RunTransitionTick(context.Background())

	status := r.Status()
	if len(status.CurrentlyProcessing) != 1 || status.CurrentlyProcessing[0] != "transition" {
		t.Errorf("expected transition job to report as processing, got %v", status.CurrentlyProcessing)
	}
	if status.SkippedTicks != 1 {
		t.Errorf("expected 1 skipped tick, got %d", status.SkippedTicks)
	}

	close(release)
	<-done

	if store.openCalls["slow"] != 1 {
		t.Fatalf("expected the case to be processed exactly once, got %d", store.openCalls["slow"])
	}

	// With the guard released, the next tick runs normally; the case
	// already transitioned so nothing happens again.
	r.RunTransitionTick(context.Background())
	if store.openCalls["slow"] != 1 {
		t.Fatalf("expected no second transition attempt, got %d", store.openCalls["slow"])
	}
}

// The two job types hold independent guards: a running reminder tick
// never blocks a transition tick.
func TestRunner_JobGuardsAreIndependent(t *testing.T) {
	store := newFakeStore()
	r := newTestRunner(store)

	if !r.transitionGuard.TryAcquire() {
		t.Fatalf("expected transition guard acquire to succeed")
	}
	defer r.transitionGuard.Release()

	// Reminder tick proceeds even while the transition guard is held.
	r.RunReminderTick(context.Background())
	if r.reminderGuard.Skips() != 0 {
		t.Fatalf("expected no reminder skips, got %d", r.reminderGuard.Skips())
	}
}

func TestRunner_StartStopStatus(t *testing.T) {
	store := newFakeStore()
	r := newTestRunner(store)

	status := r.Status()
	if status.Running {
		t.Fatalf("expected runner to report stopped before Start")
	}
	if status.Windows.AccessWindowMinutes != 30 {
		t.Errorf("expected configured access window in status, got %d", status.Windows.AccessWindowMinutes)
	}
	if len(status.ReminderOffsets) != 4 {
		t.Errorf("expected 4 reminder offsets in status, got %v", status.ReminderOffsets)
	}

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("expected Start to succeed, got %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Fatalf("expected second Start to fail")
	}
	if !r.Status().Running {
		t.Errorf("expected runner to report running after Start")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	r.Stop(stopCtx)
	if r.Status().Running {
		t.Errorf("expected runner to report stopped after Stop")
	}

	// Stop on an already-stopped runner is a no-op.
	r.Stop(stopCtx)
}
