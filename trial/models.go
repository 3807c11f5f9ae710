package trial

import (
	"fmt"
	"time"
)

// AttorneyStatus tracks how far a case has moved toward its live trial
// session. The scheduler only ever advances it, never rewinds it.
type AttorneyStatus string

const (
	// StatusAwaitingTrial is the initial state after admin approval.
	StatusAwaitingTrial AttorneyStatus = "awaiting_trial"
	// StatusWarRoom marks the collaborative pre-trial preparation window.
	// It is set by the case-prep surface, never by the scheduler, but
	// cases in it still receive countdown reminders.
	StatusWarRoom AttorneyStatus = "war_room"
	// StatusJoinTrial means the trial session is open and joinable.
	StatusJoinTrial AttorneyStatus = "join_trial"
)

// Valid reports whether s is one of the known attorney statuses.
func (s AttorneyStatus) Valid() bool {
	switch s {
	case StatusAwaitingTrial, StatusWarRoom, StatusJoinTrial:
		return true
	default:
		return false
	}
}

// ValidateTransition rejects anything but a forward move through the
// case lifecycle. Skipping war_room is legal; going backward is not.
func ValidateTransition(from, to AttorneyStatus) error {
	if !from.Valid() {
		return fmt.Errorf("trial: unknown attorney status %q", from)
	}
	if !to.Valid() {
		return fmt.Errorf("trial: unknown attorney status %q", to)
	}
	switch {
	case from == StatusAwaitingTrial && (to == StatusWarRoom || to == StatusJoinTrial):
		return nil
	case from == StatusWarRoom && to == StatusJoinTrial:
		return nil
	default:
		return fmt.Errorf("trial: invalid transition %s -> %s", from, to)
	}
}

// ApprovalStatus is the admin review outcome for a case.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Case mirrors the cases table columns touched by the scheduler.
type Case struct {
	ID                  string
	TrialDate           time.Time // date portion only
	TrialTime           string    // wall clock "15:04", no zone
	AttorneyID          string
	Jurisdiction        string // free-text label used for offset lookup
	AttorneyStatus      AttorneyStatus
	AdminApprovalStatus ApprovalStatus
	NotificationsSent   bool
	Reminder4Days       bool
	Reminder3Days       bool
	Reminder2Days       bool
	Reminder1Day        bool
	Deleted             bool
	UpdatedAt           time.Time
}

// ScheduledAt combines the trial date and wall-clock time into a single
// naive timestamp. The result carries no zone information; callers
// shift "now" into the jurisdiction's offset before comparing.
func (c Case) ScheduledAt() (time.Time, error) {
	t, err := time.Parse("15:04", c.TrialTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("trial: parse trial time %q: %w", c.TrialTime, err)
	}
	d := c.TrialDate
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// ReminderSent reports the latch for the given day offset.
func (c Case) ReminderSent(offsetDays int) (bool, error) {
	switch offsetDays {
	case 4:
		return c.Reminder4Days, nil
	case 3:
		return c.Reminder3Days, nil
	case 2:
		return c.Reminder2Days, nil
	case 1:
		return c.Reminder1Day, nil
	default:
		return false, fmt.Errorf("trial: no reminder latch for offset %d", offsetDays)
	}
}

// JurorApplication links a juror to a case; only approved applications
// count toward the notification audience.
type JurorApplication struct {
	ID      string
	CaseID  string
	JurorID string
	Status  ApprovalStatus
}

// Admin receives start-of-trial notifications while active.
type Admin struct {
	ID     string
	Email  string
	Active bool
}
