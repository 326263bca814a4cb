package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrSandboxRestricted means the email provider refused the recipient
// because the sending account is still in test mode.
var ErrSandboxRestricted = errors.New("email provider sandbox restriction")

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a Message. Implementations return an error on any
// delivery failure; nothing is retried.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders the account emails and hands them to a Sender.
type Mailer struct {
	sender   Sender
	validFor time.Duration
	log      *slog.Logger
}

// NewMailer builds a Mailer. validFor is the code lifetime quoted in the
// emails; zero means OTPTTL.
func NewMailer(sender Sender, validFor time.Duration, log *slog.Logger) *Mailer {
	if validFor <= 0 {
		validFor = OTPTTL
	}
	return &Mailer{sender: sender, validFor: validFor, log: log}
}

// SendVerificationOTP sends the registration code.
func (m *Mailer) SendVerificationOTP(ctx context.Context, to, name, otp string) error {
	return m.send(ctx, to, verifyEmail, otp, mailData{Name: name, OTP: otp})
}

// SendPasswordReset sends the password reset code.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, otp string) error {
	return m.send(ctx, to, resetEmail, otp, mailData{Name: name, OTP: otp})
}

func (m *Mailer) send(ctx context.Context, to string, tmpl emailTemplate, otp string, data mailData) error {
	data.ValidFor = int(m.validFor.Minutes())

	var html, text bytes.Buffer
	if err := tmpl.html.Execute(&html, data); err != nil {
		return fmt.Errorf("render %s html: %w", tmpl.name, err)
	}
	if err := tmpl.text.Execute(&text, data); err != nil {
		return fmt.Errorf("render %s text: %w", tmpl.name, err)
	}

	msg := Message{
		To:      to,
		Subject: fmt.Sprintf(tmpl.subject, otp),
		HTML:    html.String(),
		Text:    text.String(),
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		m.log.ErrorContext(ctx, "email sending failed", "template", tmpl.name, "to", to, "error", err)
		return fmt.Errorf("send %s email: %w", tmpl.name, err)
	}

	m.log.InfoContext(ctx, "email sent", "template", tmpl.name, "to", to)
	return nil
}

// LogSender only logs. Used in development when no provider is configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Log.InfoContext(ctx, "email not delivered (log provider)", "to", msg.To, "subject", msg.Subject)
	return nil
}
