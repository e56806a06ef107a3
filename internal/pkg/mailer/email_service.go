package mailer

import (
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	Enabled() bool
	SendNotebookShared(toEmails []string, sharerName, notebookName, accessLevel string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	clientURL   string
}

// NewEmailService returns a mailer that does nothing when host is empty.
func NewEmailService(host string, port int, username, password, senderName, clientURL string) IEmailService {
	var d *gomail.Dialer
	if host != "" {
		d = gomail.NewDialer(host, port, username, password)
	}

	return &emailService{
		dialer:      d,
		senderEmail: username,
		senderName:  senderName,
		clientURL:   strings.TrimRight(clientURL, "/"),
	}
}

func (s *emailService) Enabled() bool {
	return s.dialer != nil
}

func (s *emailService) SendNotebookShared(toEmails []string, sharerName, notebookName, accessLevel string) error {
	if !s.Enabled() || len(toEmails) == 0 {
		return nil
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmails...)
	m.SetHeader("Subject", fmt.Sprintf("%s shared a notebook with you", sharerName))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>%s shared "%s" with you</h2>
			<p>You now have <strong>%s</strong> on this notebook.</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Open Actually Colab</a>
		</div>
	`, html.EscapeString(sharerName), html.EscapeString(notebookName), html.EscapeString(accessLevel), s.clientURL)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send share notice to %d recipients: %w", len(toEmails), err)
	}
	return nil
}
