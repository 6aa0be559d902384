package email

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// EmailSender delivers a single transactional email.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams is the content and metadata of one email.
type SendEmailParams struct {
	SendTo   string // Recipient email address (required)
	Subject  string // Subject line (required)
	BodyHTML string // HTML body (required)
	Tag      string // Optional category used for analytics and dev filenames
}

// Validate checks that all required fields are present and the recipient is
// a bare email address.
func (p SendEmailParams) Validate() error {
	var missing []string
	if strings.TrimSpace(p.SendTo) == "" {
		missing = append(missing, "send_to")
	}
	if strings.TrimSpace(p.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(p.BodyHTML) == "" {
		missing = append(missing, "body_html")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidParams, strings.Join(missing, ", "))
	}

	addr, err := mail.ParseAddress(p.SendTo)
	if err != nil || addr.Address != p.SendTo {
		return fmt.Errorf("%w: invalid recipient %q", ErrInvalidParams, p.SendTo)
	}
	return nil
}
