package services

import (
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendWelcomeEmail(email, name, companyName string) error
	SendTaskCompletedEmail(to []string, ev CompletionEvent) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendWelcomeEmail(email, name, companyName string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to Taskdesk!")

	if companyName == "" {
		companyName = "your team"
	}

	body := fmt.Sprintf(`
		<h2>Welcome, %s!</h2>
		<p>You have been added to <strong>%s</strong> on Taskdesk.</p>
		<p>Sign in to see the tasks assigned to you today.</p>
	`, html.EscapeString(name), html.EscapeString(companyName))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	return nil
}

func (s *emailService) SendTaskCompletedEmail(to []string, ev CompletionEvent) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", "Task completed: "+ev.TaskTitle)
	m.SetBody("text/html", completionEmailBody(ev))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send completion email: %w", err)
	}
	return nil
}

func completionEmailBody(ev CompletionEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>%s</h3>", html.EscapeString(ev.TaskTitle))
	fmt.Fprintf(&b, "<p>Completed by <strong>%s</strong> at %s.</p>",
		html.EscapeString(ev.WorkerName), ev.CompletedAt.Format("2006-01-02 15:04"))
	if ev.Credited > 0 {
		fmt.Fprintf(&b, "<p>Bonus credited: %d</p>", ev.Credited)
	}
	if len(ev.PhotoURLs) > 0 {
		b.WriteString("<p>Photos:</p><ul>")
		for _, u := range ev.PhotoURLs {
			esc := html.EscapeString(u)
			fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, esc, esc)
		}
		b.WriteString("</ul>")
	}
	return b.String()
}
