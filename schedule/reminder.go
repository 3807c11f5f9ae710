package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trialflow/notify"
	"trialflow/trial"
)

// ReminderDispatcher sends countdown reminders at configured day
// offsets, each gated by its own one-way latch on the case. It runs
// once per day; Tick holds the business logic so tests can drive it
// against a fixed clock.
type ReminderDispatcher struct {
	store   CaseStore
	fanout  *notify.Fanout
	offsets []int // day offsets, processed farthest to nearest
	now     func() time.Time
	log     zerolog.Logger
}

// DefaultReminderOffsets is the production countdown: 4, 3, 2 and 1
// day before the trial date.
func DefaultReminderOffsets() []int {
	return []int{4, 3, 2, 1}
}

func NewReminderDispatcher(store CaseStore, fanout *notify.Fanout, offsets []int, log zerolog.Logger) *ReminderDispatcher {
	if len(offsets) == 0 {
		offsets = DefaultReminderOffsets()
	}
	return &ReminderDispatcher{
		store:   store,
		fanout:  fanout,
		offsets: offsets,
		now:     time.Now,
		log:     log.With().Str("job", "reminder").Logger(),
	}
}

// WithClock fixes the dispatcher's clock; tests use it.
func (d *ReminderDispatcher) WithClock(now func() time.Time) *ReminderDispatcher {
	d.now = now
	return d
}

// Offsets returns the configured day offsets.
func (d *ReminderDispatcher) Offsets() []int {
	return d.offsets
}

// Tick processes each configured offset in order, completing all
// matching cases for one offset before the next begins. A single
// case's failure never blocks other cases or later offsets.
func (d *ReminderDispatcher) Tick(ctx context.Context) TickReport {
	var report TickReport
	today := d.now().UTC()

	for _, offset := range d.offsets {
		target := today.AddDate(0, 0, offset)

		cases, err := d.store.ListForReminder(ctx, target)
		if err != nil {
			d.log.Error().Err(err).Int("offset_days", offset).Msg("list cases for reminder")
			continue
		}
		report.Examined += len(cases)

		_, failed := each(d.log, fmt.Sprintf("reminder_%dd", offset), cases, caseID, func(c trial.Case) error {
			sent, err := c.ReminderSent(offset)
			if err != nil {
				return err
			}
			if sent {
				return nil
			}
			if err := d.remindCase(ctx, c, offset); err != nil {
				return err
			}
			report.Notified++
			return nil
		})
		report.Failed += failed
	}

	return report
}

// remindCase fans the countdown message out to the attorney and all
// approved jurors (no admins), then sets that offset's latch last.
func (d *ReminderDispatcher) remindCase(ctx context.Context, c trial.Case, offset int) error {
	jurors, err := d.store.ApprovedJurors(ctx, c.ID)
	if err != nil {
		return err
	}
	attorney, err := d.store.AttorneyContact(ctx, c.ID)
	if err != nil {
		return err
	}

	audience := make([]notify.Recipient, 0, len(jurors)+1)
	audience = append(audience, attorney)
	audience = append(audience, jurors...)

	day := "days"
	if offset == 1 {
		day = "day"
	}
	msg := notify.Message{
		CaseID:   c.ID,
		Category: notify.CategoryTrialReminder,
		Title:    fmt.Sprintf("Trial starts in %d %s", offset, day),
		Body: fmt.Sprintf("Your trial for case %s is scheduled for %s at %s. It starts in %d %s.",
			c.ID, c.TrialDate.Format("January 2, 2006"), c.TrialTime, offset, day),
	}

	dr := d.fanout.Deliver(ctx, msg, audience)
	if dr.Failed > 0 {
		d.log.Warn().
			Str("case_id", c.ID).
			Int("offset_days", offset).
			Int("attempted", dr.Attempted).
			Int("failed", dr.Failed).
			Msg("partial reminder delivery")
	}

	if err := d.store.MarkReminded(ctx, c.ID, offset); err != nil {
		return err
	}
	d.log.Info().
		Str("case_id", c.ID).
		Int("offset_days", offset).
		Int("recipients", dr.Attempted).
		Msg("reminder committed")
	return nil
}
