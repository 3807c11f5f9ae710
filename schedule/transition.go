package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trialflow/notify"
	"trialflow/trial"
)

// CaseStore is the typed read/update surface the scheduler requires
// from the persistent record store. It owns no schema or connections.
type CaseStore interface {
	ListAwaitingTrial(ctx context.Context) ([]trial.Case, error)
	ListUnnotified(ctx context.Context) ([]trial.Case, error)
	ListForReminder(ctx context.Context, date time.Time) ([]trial.Case, error)
	OpenTrialAccess(ctx context.Context, caseID string) error
	MarkNotified(ctx context.Context, caseID string) error
	MarkReminded(ctx context.Context, caseID string, offsetDays int) error
	ApprovedJurors(ctx context.Context, caseID string) ([]notify.Recipient, error)
	ActiveAdmins(ctx context.Context) ([]notify.Recipient, error)
	AttorneyContact(ctx context.Context, caseID string) (notify.Recipient, error)
}

// TickReport summarizes one job tick for logging and tests.
type TickReport struct {
	Examined     int
	Transitioned int
	Notified     int
	Failed       int
}

// TransitionEngine opens trial access for cases entering the access
// window and dispatches the start-of-trial notification exactly once
// per case. Tick carries no timer wiring, so tests drive it directly
// against a fixed clock.
type TransitionEngine struct {
	store   CaseStore
	fanout  *notify.Fanout
	offsets OffsetTable
	windows Windows
	now     func() time.Time
	log     zerolog.Logger
}

func NewTransitionEngine(store CaseStore, fanout *notify.Fanout, offsets OffsetTable, windows Windows, log zerolog.Logger) *TransitionEngine {
	return &TransitionEngine{
		store:   store,
		fanout:  fanout,
		offsets: offsets,
		windows: windows,
		now:     time.Now,
		log:     log.With().Str("job", "transition").Logger(),
	}
}

// WithClock fixes the engine's clock; tests use it.
func (e *TransitionEngine) WithClock(now func() time.Time) *TransitionEngine {
	e.now = now
	return e
}

// Tick runs one transition pass followed by one notification pass.
// Failures are isolated per case; a store error on one case leaves its
// latch unset so the next eligible tick retries it.
func (e *TransitionEngine) Tick(ctx context.Context) TickReport {
	var report TickReport
	now := e.now()

	awaiting, err := e.store.ListAwaitingTrial(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("list awaiting cases")
	} else {
		report.Examined += len(awaiting)
		_, failed := each(e.log, "open_trial_access", awaiting, caseID, func(c trial.Case) error {
			minutes, err := MinutesUntil(now, c, e.offsets)
			if err != nil {
				return err
			}
			if !e.windows.InAccessWindow(minutes) {
				return nil
			}
			if err := e.store.OpenTrialAccess(ctx, c.ID); err != nil {
				return err
			}
			report.Transitioned++
			e.log.Info().Str("case_id", c.ID).Int("minutes_until", minutes).Msg("trial access opened")
			return nil
		})
		report.Failed += failed
	}

	unnotified, err := e.store.ListUnnotified(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("list unnotified cases")
		return report
	}
	report.Examined += len(unnotified)
	_, failed := each(e.log, "start_notification", unnotified, caseID, func(c trial.Case) error {
		minutes, err := MinutesUntil(now, c, e.offsets)
		if err != nil {
			return err
		}
		if !e.windows.InNotifyWindow(minutes) {
			return nil
		}
		if err := e.notifyCase(ctx, c); err != nil {
			return err
		}
		report.Notified++
		return nil
	})
	report.Failed += failed

	return report
}

// notifyCase fans the start-of-trial message out to the full audience,
// then commits the notifications latch as the final, sequential step.
// Delivery is best-effort; the latch write is the durable commit point
// that prevents reprocessing.
func (e *TransitionEngine) notifyCase(ctx context.Context, c trial.Case) error {
	audience, err := e.audience(ctx, c)
	if err != nil {
		return err
	}

	msg := notify.Message{
		CaseID:          c.ID,
		Category:        notify.CategoryTrialStarted,
		Title:           "Your trial session is open",
		Body:            fmt.Sprintf("The trial session for case %s is open. Join before %s %s.", c.ID, c.TrialDate.Format("January 2"), c.TrialTime),
		AttachJoinToken: true,
	}

	dr := e.fanout.Deliver(ctx, msg, audience)
	if dr.Failed > 0 {
		e.log.Warn().
			Str("case_id", c.ID).
			Int("attempted", dr.Attempted).
			Int("failed", dr.Failed).
			Msg("partial start-notification delivery")
	}

	// Latch last: a crash before this line means a duplicate send on the
	// next eligible tick, never a silently dropped case.
	if err := e.store.MarkNotified(ctx, c.ID); err != nil {
		return err
	}
	e.log.Info().Str("case_id", c.ID).Int("recipients", dr.Attempted).Msg("start notifications committed")
	return nil
}

// audience is approved jurors, the owning attorney, and every active
// admin.
func (e *TransitionEngine) audience(ctx context.Context, c trial.Case) ([]notify.Recipient, error) {
	jurors, err := e.store.ApprovedJurors(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	attorney, err := e.store.AttorneyContact(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	admins, err := e.store.ActiveAdmins(ctx)
	if err != nil {
		return nil, err
	}

	audience := make([]notify.Recipient, 0, len(jurors)+len(admins)+1)
	audience = append(audience, jurors...)
	audience = append(audience, attorney)
	audience = append(audience, admins...)
	return audience, nil
}

func caseID(c trial.Case) string { return c.ID }
