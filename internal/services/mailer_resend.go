package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers mail through the Resend HTTP API.
type ResendSender struct {
	client  *resend.Client
	from    string
	replyTo string
}

// NewResendSender builds a sender. from is a full "Name <addr>" header.
func NewResendSender(apiKey, from, replyTo string) *ResendSender {
	return &ResendSender{
		client:  resend.NewClient(apiKey),
		from:    from,
		replyTo: replyTo,
	}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: s.replyTo,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		if isSandboxRestriction(err) {
			return fmt.Errorf("%w: %v", ErrSandboxRestricted, err)
		}
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// isSandboxRestriction recognizes Resend's refusal to mail arbitrary
// recipients before a domain has been verified.
func isSandboxRestriction(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "validation_error") ||
		strings.Contains(msg, "testing emails") ||
		strings.Contains(msg, "verify a domain")
}
