package notify

import (
	"context"
	"fmt"
	"html"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds parallel per-recipient deliveries so one
// slow SMTP conversation cannot stall the whole audience.
const defaultConcurrency = 4

// Message is one fan-out payload addressed to a whole audience.
type Message struct {
	CaseID   string
	Category string
	Title    string
	Body     string
	// AttachJoinToken adds a signed join link to the email body.
	AttachJoinToken bool
}

// Report summarizes one fan-out run. Failures are per recipient; a
// recipient counts as failed when either the notification write or the
// email send failed.
type Report struct {
	Attempted int
	Failed    int
}

// Fanout dispatches one notification and one email per recipient with
// per-recipient failure isolation: a failing recipient is logged and
// never blocks its siblings.
type Fanout struct {
	writer      Writer
	mailer      Mailer
	tokens      *TokenIssuer
	joinURL     string
	log         zerolog.Logger
	concurrency int
}

func NewFanout(writer Writer, mailer Mailer, log zerolog.Logger) *Fanout {
	return &Fanout{
		writer:      writer,
		mailer:      mailer,
		log:         log,
		concurrency: defaultConcurrency,
	}
}

// WithJoinTokens enables signed join links in outgoing emails.
func (f *Fanout) WithJoinTokens(issuer *TokenIssuer, joinURL string) *Fanout {
	f.tokens = issuer
	f.joinURL = joinURL
	return f
}

// Deliver attempts the full audience regardless of individual
// outcomes and reports how many recipients failed.
func (f *Fanout) Deliver(ctx context.Context, msg Message, audience []Recipient) Report {
	var failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(f.concurrency)
	for _, r := range audience {
		g.Go(func() error {
			if err := f.deliverOne(ctx, msg, r); err != nil {
				failed.Add(1)
				f.log.Error().
					Err(err).
					Str("case_id", msg.CaseID).
					Str("recipient_id", r.ID).
					Str("recipient_type", string(r.Type)).
					Msg("recipient missed this cycle")
			}
			return nil
		})
	}
	g.Wait()

	return Report{Attempted: len(audience), Failed: int(failed.Load())}
}

// deliverOne attempts both channels even when the first fails, so a
// broken notification write still lets the email through.
func (f *Fanout) deliverOne(ctx context.Context, msg Message, r Recipient) error {
	writeErr := f.writer.Write(ctx, Notification{
		RecipientID:   r.ID,
		RecipientType: r.Type,
		CaseID:        msg.CaseID,
		Category:      msg.Category,
		Title:         msg.Title,
		Message:       msg.Body,
	})

	body, bodyErr := f.emailBody(msg, r)
	var sendErr error
	if bodyErr == nil {
		sendErr = f.mailer.Send(ctx, Email{
			Address:  r.Email,
			Subject:  msg.Title,
			HTMLBody: body,
		})
	}

	switch {
	case writeErr != nil && (sendErr != nil || bodyErr != nil):
		return fmt.Errorf("notification write and email both failed: %v; %v", writeErr, firstErr(sendErr, bodyErr))
	case writeErr != nil:
		return writeErr
	case bodyErr != nil:
		return bodyErr
	case sendErr != nil:
		return sendErr
	}
	return nil
}

func (f *Fanout) emailBody(msg Message, r Recipient) (string, error) {
	greeting := "Hello"
	if r.Name != "" {
		greeting = "Hello " + html.EscapeString(r.Name)
	}

	body := fmt.Sprintf("<html><body><p>%s,</p><p>%s</p>", greeting, html.EscapeString(msg.Body))
	if msg.AttachJoinToken && f.tokens != nil {
		token, err := f.tokens.JoinToken(msg.CaseID, r)
		if err != nil {
			return "", err
		}
		body += fmt.Sprintf(`<p><a href="%s?token=%s">Join the trial session</a></p>`, f.joinURL, token)
	}
	body += "</body></html>"
	return body, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
