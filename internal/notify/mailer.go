package notify

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"grahalia-estates/internal/config"
	"grahalia-estates/internal/models"
)

// ErrMailDisabled is returned by a Mailer without SMTP settings
var ErrMailDisabled = errors.New("smtp is not configured")

// Sender delivers one queued notification
type Sender interface {
	Send(n *models.Notification) error
}

// Mailer sends notifications over SMTP
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	enabled bool
}

// NewMailer creates a mailer from SMTP settings. SSL follows cfg.Secure;
// otherwise gomail upgrades with STARTTLS when the server offers it.
func NewMailer(cfg config.MailConfig) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.Secure
	return &Mailer{dialer: d, from: cfg.From, enabled: cfg.MailEnabled()}
}

// Send builds the MIME message for n and delivers it
func (m *Mailer) Send(n *models.Notification) error {
	if !m.enabled {
		return ErrMailDisabled
	}
	if err := m.dialer.DialAndSend(BuildMessage(m.from, n)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// BuildMessage renders n as a plain text mail with its optional attachment
func BuildMessage(from string, n *models.Notification) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", n.Recipient)
	msg.SetHeader("Subject", n.Subject)
	msg.SetBody("text/plain", n.Body)

	if n.AttachmentName != "" {
		data := []byte(n.Attachment)
		msg.Attach(n.AttachmentName,
			gomail.SetHeader(map[string][]string{"Content-Type": {"text/csv; charset=utf-8"}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		)
	}
	return msg
}
