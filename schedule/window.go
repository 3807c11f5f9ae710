package schedule

import (
	"time"

	"trialflow/trial"
)

// Windows bounds the transition and notification selection, all in
// minutes relative to the case's local trial start.
type Windows struct {
	// AccessWindowMinutes is how far before the start a case moves to
	// join_trial.
	AccessWindowMinutes int
	// NotifyWindowMinutes is the lead time for start-of-trial
	// notifications.
	NotifyWindowMinutes int
	// GraceWindowMinutes lets a slightly-late tick still notify after
	// the start; a trial further past than this never notifies.
	GraceWindowMinutes int
}

// DefaultWindows matches the production configuration.
func DefaultWindows() Windows {
	return Windows{
		AccessWindowMinutes: 30,
		NotifyWindowMinutes: 30,
		GraceWindowMinutes:  60,
	}
}

// MinutesUntil computes signed whole minutes from now until the case's
// scheduled start. Stored trial date/time are attorney-local wall
// clock, so "now" is shifted into the jurisdiction's fixed offset
// before the comparison. Positive means the start is in the future,
// zero starting now, negative already started.
func MinutesUntil(now time.Time, c trial.Case, offsets OffsetTable) (int, error) {
	sched, err := c.ScheduledAt()
	if err != nil {
		return 0, err
	}

	offset := time.Duration(offsets.Offset(c.Jurisdiction)) * time.Minute
	localNow := now.UTC().Add(offset)
	// ScheduledAt returns a naive timestamp pinned to UTC; rebuild the
	// shifted "now" the same way so the subtraction compares wall
	// clocks, not instants.
	localWall := time.Date(
		localNow.Year(), localNow.Month(), localNow.Day(),
		localNow.Hour(), localNow.Minute(), localNow.Second(), 0, time.UTC,
	)

	return int(sched.Sub(localWall) / time.Minute), nil
}

// InAccessWindow reports whether a case should transition to
// join_trial: from the start of the access window down to the start
// itself.
func (w Windows) InAccessWindow(minutes int) bool {
	return minutes >= 0 && minutes <= w.AccessWindowMinutes
}

// InNotifyWindow reports whether a start-of-trial notification is
// still eligible: from the notify lead time down through the grace
// period after the start.
func (w Windows) InNotifyWindow(minutes int) bool {
	return minutes >= -w.GraceWindowMinutes && minutes <= w.NotifyWindowMinutes
}
