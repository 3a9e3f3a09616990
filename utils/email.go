// utils/email.go
package utils

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// SendEmail delivers a plain-text email through the configured SMTP relay.
// Callers decide whether a failure is fatal; most notification paths log
// and continue.
func SendEmail(to, subject, body string) error {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return fmt.Errorf("SMTP_HOST is not configured")
	}
	port := 465
	if p := os.Getenv("SMTP_PORT"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			port = parsed
		}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", os.Getenv("SMTP_SENDER"))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(host, port, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASS"))
	return d.DialAndSend(m)
}
