// services/notifier.go
package services

import (
	"log"

	"taxprep-referral-system/utils"
)

// Notifier delivers referrer/lead notifications. Delivery is always
// best-effort: callers log failures and move on, state transitions never
// roll back on a send error.
type Notifier interface {
	Send(to, subject, body string) error
}

// EmailNotifier sends over the configured SMTP relay.
type EmailNotifier struct{}

func NewEmailNotifier() *EmailNotifier {
	return &EmailNotifier{}
}

func (n *EmailNotifier) Send(to, subject, body string) error {
	if err := utils.SendEmail(to, subject, body); err != nil {
		return &DependencyError{Msg: "email delivery failed", Err: err}
	}
	return nil
}

// NoopNotifier backs tests and local runs without an SMTP relay.
type NoopNotifier struct{}

func (NoopNotifier) Send(to, subject, body string) error {
	log.Printf("[NOTIFY] (noop) to=%s subject=%q", to, subject)
	return nil
}
