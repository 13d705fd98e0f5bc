// Package mailer sends account emails (verification, password reset)
package mailer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

// Message is one outgoing email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ConsoleMailer writes messages to the log instead of sending them
type ConsoleMailer struct {
	log zerolog.Logger
}

// NewConsoleMailer creates a mailer logging through log
func NewConsoleMailer(log zerolog.Logger) *ConsoleMailer {
	return &ConsoleMailer{log: log}
}

// Send logs msg at info level
func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("Email")
	return nil
}

// VerificationMessage builds the email sent after signup
func VerificationMessage(uiURL, email, token string) Message {
	link := fmt.Sprintf("%s/verify?%s", uiURL, url.Values{"email": {email}, "token": {token}}.Encode())
	return Message{
		To:      email,
		Subject: "Verify your NuageVault account",
		Body:    fmt.Sprintf("Confirm your email address: %s\nOr run: nuagevault verify --email %s --token %s", link, email, token),
	}
}

// PasswordResetMessage builds the forgot-password email
func PasswordResetMessage(uiURL, email, token string) Message {
	link := fmt.Sprintf("%s/reset?%s", uiURL, url.Values{"email": {email}, "token": {token}}.Encode())
	return Message{
		To:      email,
		Subject: "Reset your NuageVault password",
		Body:    fmt.Sprintf("Choose a new password: %s\nOr run: nuagevault reset --email %s --token %s", link, email, token),
	}
}
