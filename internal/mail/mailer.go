package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/bsg-enterprise/ticketing/internal/config"
)

// Message is one outbound email.
type Message struct {
	To        []string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an SMTP relay with gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	name   string
}

// NewSMTPMailer builds a mailer from configuration.
func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		name:   cfg.FromName,
	}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	if s.name != "" {
		m.SetAddressHeader("From", s.from, s.name)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.PlainBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer records messages in the log instead of sending them; used when SMTP is not configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (l *LogMailer) Send(_ context.Context, msg Message) error {
	l.logger.Info("email delivery disabled, message dropped",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// New picks the SMTP mailer when configured and the log mailer otherwise.
func New(cfg config.EmailConfig, logger *zap.Logger) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg)
	}
	return NewLogMailer(logger)
}
