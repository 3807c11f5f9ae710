package notify

// RecipientType tags who a notification is addressed to.
type RecipientType string

const (
	RecipientJuror    RecipientType = "juror"
	RecipientAttorney RecipientType = "attorney"
	RecipientAdmin    RecipientType = "admin"
)

// Recipient is one resolved member of a fan-out audience.
type Recipient struct {
	ID    string
	Type  RecipientType
	Email string
	Name  string
}

// Notification is the in-app notification payload handed to a Writer.
type Notification struct {
	RecipientID   string
	RecipientType RecipientType
	CaseID        string
	Category      string
	Title         string
	Message       string
}

// Email is the outbound message handed to a Mailer.
type Email struct {
	Address  string
	Subject  string
	HTMLBody string
}

const (
	// CategoryTrialStarted marks the start-of-trial notification.
	CategoryTrialStarted = "trial_started"
	// CategoryTrialReminder marks a countdown reminder.
	CategoryTrialReminder = "trial_reminder"
)
