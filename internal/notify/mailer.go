package notify

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Mailer sends ingestion status mail to the content team. A nil Mailer (no
// SMTP configured) disables notification.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
	to   []string
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   []string
}

func NewMailer(cfg SMTPConfig) *Mailer {
	if strings.TrimSpace(cfg.Host) == "" || cfg.Port <= 0 || strings.TrimSpace(cfg.From) == "" || len(cfg.To) == 0 {
		return nil
	}
	return &Mailer{
		host: strings.TrimSpace(cfg.Host),
		port: cfg.Port,
		user: strings.TrimSpace(cfg.User),
		pass: cfg.Pass,
		from: strings.TrimSpace(cfg.From),
		to:   cfg.To,
	}
}

// NotifyIngestIssues fires a best-effort mail about a run that completed with
// failures. Sending happens off the caller's goroutine; errors are logged,
// never returned.
func (m *Mailer) NotifyIngestIssues(recordID int64, inserted, failed int) {
	if m == nil {
		return
	}
	go func() {
		subject := fmt.Sprintf("Question ingestion %d completed with %d failures", recordID, failed)
		body := fmt.Sprintf(
			"Processing record %d finished: %d questions inserted, %d failed validation.\nReview the issue report and resolve the record.",
			recordID, inserted, failed,
		)
		if err := m.send(subject, body); err != nil {
			log.Printf("notify: send ingest mail for record %d: %v", recordID, err)
		}
	}()
}

func (m *Mailer) send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	msg := "From: " + m.from + "\r\n" +
		"To: " + strings.Join(m.to, ", ") + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
		body + "\r\n"

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, m.to, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
