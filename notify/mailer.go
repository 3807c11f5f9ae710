package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

// Mailer delivers a single email. Implementations own their retry
// policy and must return an error rather than panic on failure.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// SMTPConfig carries the connection settings for SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// MaxPerSecond bounds outbound sends; zero means unlimited.
	MaxPerSecond int
}

// SMTPMailer sends mail over plain SMTP with internal retry and an
// outbound rate limit shared across callers.
type SMTPMailer struct {
	addr    string
	host    string
	from    string
	auth    smtp.Auth
	limiter *rate.Limiter
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("notify: smtp host required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("notify: smtp from address required")
	}

	limit := rate.Inf
	if cfg.MaxPerSecond > 0 {
		limit = rate.Limit(cfg.MaxPerSecond)
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPMailer{
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		host:    cfg.Host,
		from:    cfg.From,
		auth:    auth,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Send delivers the email, retrying transient failures up to three
// times with backoff before reporting the last error.
func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	if e.Address == "" {
		return fmt.Errorf("notify: empty recipient address")
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify: rate limit wait: %w", err)
	}

	err := retry.Do(
		func() error { return m.send(e) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("notify: send to %s: %w", e.Address, err)
	}
	return nil
}

func (m *SMTPMailer) send(e Email) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", e.Address)
	fmt.Fprintf(&b, "Subject: %s\r\n", e.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(e.HTMLBody)

	return smtp.SendMail(m.addr, m.auth, m.from, []string{e.Address}, []byte(b.String()))
}
