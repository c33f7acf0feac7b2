package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"astroconsult-backend/internal/domain"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender mails notifications through SMTP.
type EmailSender struct {
	dialer mailDialer
	from   string
}

func NewEmailSender(host string, port int, username, password, from string) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *EmailSender) Channel() string { return ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, recipient *domain.User, n domain.Notification) error {
	if recipient == nil || recipient.Email == "" {
		return errNoAddress
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", recipient.Email, recipient.Name)
	m.SetHeader("Subject", n.Title)
	m.SetBody("text/plain", emailBody(recipient.Name, n))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return nil
}

func emailBody(name string, n domain.Notification) string {
	body := fmt.Sprintf("Hello %s,\n\n%s", name, n.Message)
	if n.Amount != "" {
		body += fmt.Sprintf("\n\nAmount: %s", n.Amount)
	}
	if b, ok := n.Attributes["balance"]; ok {
		body += fmt.Sprintf("\nWallet balance: %s", b)
	}
	return body + "\n\nBest regards,\nThe AstroConsult Team"
}
