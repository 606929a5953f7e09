// Package notify sends the run report by email.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"homescout-engine/internal/logging"
)

// Mailer sends plain-text email over SMTP with an app password.
type Mailer struct {
	Host     string
	Port     int
	From     string
	Password string
	Log      *logging.Logger

	// send is swapped out in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(host string, port int, from, password string, log *logging.Logger) *Mailer {
	return &Mailer{
		Host:     host,
		Port:     port,
		From:     from,
		Password: password,
		Log:      log,
		send:     smtp.SendMail,
	}
}

// Send delivers the message to each recipient in turn, best effort: a
// failure for one recipient is logged and must not stop the rest.
func (m *Mailer) Send(recipients []string, subject, body string) {
	for _, to := range recipients {
		if err := m.sendOne(to, subject, body); err != nil {
			m.Log.Errorf("[notify] sending to %s: %v", to, err)
			continue
		}
		m.Log.Infof("[notify] sent report to %s", to)
	}
}

func (m *Mailer) sendOne(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.From, m.Password, m.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	return m.send(addr, auth, m.From, []string{to}, []byte(msg.String()))
}
