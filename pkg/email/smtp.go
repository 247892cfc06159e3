// Package email sends notification mail over SMTP.
package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/medigrid-hms/backend/config"
)

// Sender sends mail through a configured SMTP relay.
type Sender struct {
	cfg config.EmailConfig
}

// NewSender creates an SMTP sender from config.
func NewSender(cfg config.EmailConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Enabled reports whether an SMTP host is configured. When false the worker
// logs and drops email jobs instead of failing them.
func (s *Sender) Enabled() bool {
	return s.cfg.SMTPHost != ""
}

// Send delivers a single HTML email.
func (s *Sender) Send(to, subject, bodyHTML string) error {
	if !s.Enabled() {
		return fmt.Errorf("smtp not configured")
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.cfg.FromName, s.cfg.FromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(bodyHTML)

	if err := smtp.SendMail(addr, auth, s.cfg.FromAddress, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
