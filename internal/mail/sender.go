package mail

import (
	"fmt"

	gomail "github.com/go-mail/mail"
)

// Sender delivers outbound mail. A send failure is surfaced to the caller
// as-is; nothing upstream is rolled back on its account.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers over SMTP with STARTTLS negotiation.
type SMTPSender struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

func NewSMTPSender(host string, port int, from, username, password string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		From:     from,
		Username: username,
		Password: password,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// VerificationSubject and VerificationBody build the verification mail.
const VerificationSubject = "Verification Code"

func VerificationBody(code string) string {
	return fmt.Sprintf("Your verification code is: %s", code)
}
