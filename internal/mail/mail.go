// Package mail composes and delivers the report notification for a run,
// either over SMTP or as an RFC 5322 preview file next to the artifact.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// Message is a fully resolved report notification. The sender address is
// owned by the Mailer so callers only supply recipients and content.
type Message struct {
	To         []string
	CC         []string
	BCC        []string
	Subject    string
	Body       string
	Attachment string
}

// Mailer delivers a report notification. Implementations decide what
// delivery means: an SMTP send or a preview written to disk.
type Mailer interface {
	Deliver(ctx context.Context, msg Message) error
	Mode() string
}

func compose(sender string, m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(sender); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", sender, err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	if len(m.CC) > 0 {
		if err := msg.Cc(m.CC...); err != nil {
			return nil, fmt.Errorf("invalid cc address: %w", err)
		}
	}
	if len(m.BCC) > 0 {
		if err := msg.Bcc(m.BCC...); err != nil {
			return nil, fmt.Errorf("invalid bcc address: %w", err)
		}
	}

	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)

	if m.Attachment != "" {
		msg.AttachFile(m.Attachment)
	}

	return msg, nil
}
