package trial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trialflow/notify"
)

var (
	// ErrCaseNotFound is returned when an update matched no row, either
	// because the case is missing or its state already moved on.
	ErrCaseNotFound = errors.New("trial: case not found")
)

// reminderColumns maps a day offset to its latch column. Only offsets
// present here have a latch; anything else is a caller bug.
var reminderColumns = map[int]string{
	4: "reminder_4_days",
	3: "reminder_3_days",
	2: "reminder_2_days",
	1: "reminder_1_day",
}

const caseColumns = `
	id, trial_date, trial_time, attorney_id, jurisdiction,
	attorney_status::text, admin_approval_status::text, notifications_sent,
	reminder_4_days, reminder_3_days, reminder_2_days, reminder_1_day,
	deleted, updated_at
`

// PGStore is the PostgreSQL case store consumed by the scheduler jobs.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// ListAwaitingTrial returns approved, live cases still waiting for
// their trial session to open.
func (s *PGStore) ListAwaitingTrial(ctx context.Context) ([]Case, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM cases
		WHERE attorney_status = 'awaiting_trial'
		  AND admin_approval_status = 'approved'
		  AND NOT deleted
		ORDER BY trial_date, trial_time
	`, caseColumns)

	return s.listCases(ctx, "list awaiting trial", query)
}

// ListUnnotified returns open cases whose start-of-trial notification
// has not been committed yet.
func (s *PGStore) ListUnnotified(ctx context.Context) ([]Case, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM cases
		WHERE attorney_status = 'join_trial'
		  AND admin_approval_status = 'approved'
		  AND NOT notifications_sent
		  AND NOT deleted
		ORDER BY trial_date, trial_time
	`, caseColumns)

	return s.listCases(ctx, "list unnotified", query)
}

// ListForReminder returns approved pre-trial cases scheduled on the
// given calendar date.
func (s *PGStore) ListForReminder(ctx context.Context, date time.Time) ([]Case, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM cases
		WHERE trial_date = $1::date
		  AND admin_approval_status = 'approved'
		  AND attorney_status IN ('war_room', 'join_trial')
		  AND NOT deleted
		ORDER BY trial_date, trial_time
	`, caseColumns)

	return s.listCases(ctx, "list for reminder", query, date)
}

func (s *PGStore) listCases(ctx context.Context, verb, query string, args ...any) ([]Case, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trial: %s: %w", verb, err)
	}
	defer rows.Close()

	cases := make([]Case, 0, 8)
	for rows.Next() {
		var c Case
		if err := rows.Scan(
			&c.ID, &c.TrialDate, &c.TrialTime, &c.AttorneyID, &c.Jurisdiction,
			&c.AttorneyStatus, &c.AdminApprovalStatus, &c.NotificationsSent,
			&c.Reminder4Days, &c.Reminder3Days, &c.Reminder2Days, &c.Reminder1Day,
			&c.Deleted, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("trial: scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trial: iterate cases: %w", err)
	}
	return cases, nil
}

// OpenTrialAccess advances a case from awaiting_trial to join_trial.
// The WHERE guard on the current status makes a repeat call a no-op at
// the database, so the transition happens at most once per case.
func (s *PGStore) OpenTrialAccess(ctx context.Context, caseID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cases
		SET attorney_status = 'join_trial', updated_at = now()
		WHERE id = $1 AND attorney_status = 'awaiting_trial'
	`, caseID)
	if err != nil {
		return fmt.Errorf("trial: open trial access: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// MarkNotified flips the one-way notifications latch.
func (s *PGStore) MarkNotified(ctx context.Context, caseID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cases
		SET notifications_sent = true, updated_at = now()
		WHERE id = $1 AND NOT notifications_sent
	`, caseID)
	if err != nil {
		return fmt.Errorf("trial: mark notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// MarkReminded flips the reminder latch for the given day offset.
func (s *PGStore) MarkReminded(ctx context.Context, caseID string, offsetDays int) error {
	column, ok := reminderColumns[offsetDays]
	if !ok {
		return fmt.Errorf("trial: no reminder latch for offset %d", offsetDays)
	}

	query := fmt.Sprintf(`
		UPDATE cases
		SET %s = true, updated_at = now()
		WHERE id = $1 AND NOT %s
	`, column, column)

	tag, err := s.pool.Exec(ctx, query, caseID)
	if err != nil {
		return fmt.Errorf("trial: mark reminded %dd: %w", offsetDays, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// ApprovedJurors resolves the juror portion of a case's audience.
func (s *PGStore) ApprovedJurors(ctx context.Context, caseID string) ([]notify.Recipient, error) {
	const query = `
		SELECT u.id, u.email, u.full_name
		FROM juror_applications ja
		JOIN users u ON u.id = ja.juror_id
		WHERE ja.case_id = $1 AND ja.status = 'approved'
		ORDER BY u.email
	`

	rows, err := s.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("trial: list approved jurors: %w", err)
	}
	defer rows.Close()

	out := make([]notify.Recipient, 0, 8)
	for rows.Next() {
		r := notify.Recipient{Type: notify.RecipientJuror}
		if err := rows.Scan(&r.ID, &r.Email, &r.Name); err != nil {
			return nil, fmt.Errorf("trial: scan juror: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trial: iterate jurors: %w", err)
	}
	return out, nil
}

// ActiveAdmins resolves the admin portion of the start-of-trial
// audience.
func (s *PGStore) ActiveAdmins(ctx context.Context) ([]notify.Recipient, error) {
	const query = `SELECT id, email FROM admins WHERE active ORDER BY email`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("trial: list active admins: %w", err)
	}
	defer rows.Close()

	out := make([]notify.Recipient, 0, 4)
	for rows.Next() {
		r := notify.Recipient{Type: notify.RecipientAdmin}
		if err := rows.Scan(&r.ID, &r.Email); err != nil {
			return nil, fmt.Errorf("trial: scan admin: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trial: iterate admins: %w", err)
	}
	return out, nil
}

// AttorneyContact resolves the owning attorney's contact details.
func (s *PGStore) AttorneyContact(ctx context.Context, caseID string) (notify.Recipient, error) {
	const query = `
		SELECT u.id, u.email, u.full_name
		FROM cases c
		JOIN users u ON u.id = c.attorney_id
		WHERE c.id = $1
	`

	r := notify.Recipient{Type: notify.RecipientAttorney}
	if err := s.pool.QueryRow(ctx, query, caseID).Scan(&r.ID, &r.Email, &r.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notify.Recipient{}, ErrCaseNotFound
		}
		return notify.Recipient{}, fmt.Errorf("trial: attorney contact: %w", err)
	}
	return r, nil
}
