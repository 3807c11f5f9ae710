package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trialflow/notify"
	"trialflow/trial"
)

// fakeStore is an in-memory CaseStore whose list methods mirror the
// SQL predicates of the real repository.
type fakeStore struct {
	mu        sync.Mutex
	cases     map[string]*trial.Case
	jurors    map[string][]notify.Recipient
	attorneys map[string]notify.Recipient
	admins    []notify.Recipient

	openErr   map[string]error
	notifyErr map[string]error

	// listGate, when set, runs at the start of ListAwaitingTrial; the
	// overlap tests use it to hold a tick open.
	listGate func()

	openCalls   map[string]int
	notifyCalls map[string]int
	remindCalls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cases:       map[string]*trial.Case{},
		jurors:      map[string][]notify.Recipient{},
		attorneys:   map[string]notify.Recipient{},
		openErr:     map[string]error{},
		notifyErr:   map[string]error{},
		openCalls:   map[string]int{},
		notifyCalls: map[string]int{},
		remindCalls: map[string]int{},
	}
}

func (s *fakeStore) addCase(c trial.Case) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.cases[c.ID] = &cp
}

func (s *fakeStore) getCase(id string) trial.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cases[id]
}

func (s *fakeStore) ListAwaitingTrial(ctx context.Context) ([]trial.Case, error) {
	if s.listGate != nil {
		s.listGate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []trial.Case
	for _, c := range s.cases {
		if c.AttorneyStatus == trial.StatusAwaitingTrial &&
			c.AdminApprovalStatus == trial.ApprovalApproved && !c.Deleted {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) ListUnnotified(ctx context.Context) ([]trial.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []trial.Case
	for _, c := range s.cases {
		if c.AttorneyStatus == trial.StatusJoinTrial &&
			c.AdminApprovalStatus == trial.ApprovalApproved &&
			!c.NotificationsSent && !c.Deleted {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) ListForReminder(ctx context.Context, date time.Time) ([]trial.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []trial.Case
	for _, c := range s.cases {
		sameDay := c.TrialDate.Year() == date.Year() &&
			c.TrialDate.Month() == date.Month() &&
			c.TrialDate.Day() == date.Day()
		preTrial := c.AttorneyStatus == trial.StatusWarRoom || c.AttorneyStatus == trial.StatusJoinTrial
		if sameDay && preTrial && c.AdminApprovalStatus == trial.ApprovalApproved && !c.Deleted {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) OpenTrialAccess(ctx context.Context, caseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openCalls[caseID]++
	if err := s.openErr[caseID]; err != nil {
		return err
	}
	c, ok := s.cases[caseID]
	if !ok || c.AttorneyStatus != trial.StatusAwaitingTrial {
		return trial.ErrCaseNotFound
	}
	c.AttorneyStatus = trial.StatusJoinTrial
	c.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) MarkNotified(ctx context.Context, caseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyCalls[caseID]++
	if err := s.notifyErr[caseID]; err != nil {
		return err
	}
	c, ok := s.cases[caseID]
	if !ok || c.NotificationsSent {
		return trial.ErrCaseNotFound
	}
	c.NotificationsSent = true
	c.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) MarkReminded(ctx context.Context, caseID string, offsetDays int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remindCalls[fmt.Sprintf("%s:%d", caseID, offsetDays)]++
	c, ok := s.cases[caseID]
	if !ok {
		return trial.ErrCaseNotFound
	}
	switch offsetDays {
	case 4:
		if c.Reminder4Days {
			return trial.ErrCaseNotFound
		}
		c.Reminder4Days = true
	case 3:
		if c.Reminder3Days {
			return trial.ErrCaseNotFound
		}
		c.Reminder3Days = true
	case 2:
		if c.Reminder2Days {
			return trial.ErrCaseNotFound
		}
		c.Reminder2Days = true
	case 1:
		if c.Reminder1Day {
			return trial.ErrCaseNotFound
		}
		c.Reminder1Day = true
	default:
		return fmt.Errorf("no latch for offset %d", offsetDays)
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) ApprovedJurors(ctx context.Context, caseID string) ([]notify.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jurors[caseID], nil
}

func (s *fakeStore) ActiveAdmins(ctx context.Context) ([]notify.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admins, nil
}

func (s *fakeStore) AttorneyContact(ctx context.Context, caseID string) (notify.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.attorneys[caseID]
	if !ok {
		return notify.Recipient{}, trial.ErrCaseNotFound
	}
	return r, nil
}

// fakeWriter records in-app notification writes.
type fakeWriter struct {
	mu      sync.Mutex
	written []notify.Notification
	failFor map[string]error // keyed by recipient id
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{failFor: map[string]error{}}
}

func (w *fakeWriter) Write(ctx context.Context, n notify.Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.failFor[n.RecipientID]; err != nil {
		return err
	}
	w.written = append(w.written, n)
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.written)
}

// fakeMailer records outbound emails.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []notify.Email
	failFor map[string]error // keyed by address
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{failFor: map[string]error{}}
}

func (m *fakeMailer) Send(ctx context.Context, e notify.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[e.Address]; err != nil {
		return err
	}
	m.sent = append(m.sent, e)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) addresses() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, e := range m.sent {
		out[e.Address]++
	}
	return out
}
