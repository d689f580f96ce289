package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/natek434/gardenit/utils"
)

// SMTPMailer delivers plain-text mail over SMTP. It implements
// interfaces.Mailer.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (sm *SMTPMailer) Deliver(ctx context.Context, to, subject, body string) error {
	message := sm.buildMessage(to, subject, body)

	auth := smtp.PlainAuth("", sm.username, sm.password, sm.host)
	addr := fmt.Sprintf("%s:%s", sm.host, sm.port)

	if err := smtp.SendMail(addr, auth, sm.from, []string{to}, []byte(message)); err != nil {
		return utils.NewMessageDeliveryError(to, err)
	}

	logrus.Infof("Email sent successfully to %s", to)
	return nil
}

func (sm *SMTPMailer) buildMessage(to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", sm.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

// MockMailer logs instead of sending. Used when SMTP credentials are
// not configured and in development.
type MockMailer struct{}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (mm *MockMailer) Deliver(ctx context.Context, to, subject, body string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("📧 Mock email delivery")
	return nil
}
