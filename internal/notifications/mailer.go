package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

// Message is a single HTML e-mail.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Mailer delivers composed messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends through an authenticated SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	send sendFunc
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	if host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.SMTPPort <= 0 {
		return nil, fmt.Errorf("smtp port must be positive")
	}
	from := strings.TrimSpace(cfg.FromAddress)
	if from == "" {
		return nil, fmt.Errorf("mail from address is required")
	}

	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, host)
	}
	return &SMTPMailer{
		addr: host + ":" + strconv.Itoa(cfg.SMTPPort),
		auth: auth,
		from: from,
		send: smtp.SendMail,
	}, nil
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient is required")
	}
	if err := m.send(m.addr, m.auth, m.from, []string{msg.To}, m.encode(msg)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

func (m *SMTPMailer) encode(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// LogMailer writes messages to the log instead of sending them. Used when no
// SMTP host is configured.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if m.logg != nil {
		ctx = m.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
		m.logg.Info(ctx, "mail.skipped_no_smtp")
	}
	return nil
}

// NewMailer picks the SMTP mailer when a host is configured.
func NewMailer(cfg config.MailConfig, logg *logger.Logger) (Mailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return NewLogMailer(logg), nil
	}
	return NewSMTPMailer(cfg)
}
