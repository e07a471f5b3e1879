// Package email delivers notifications over authenticated SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

const channelName = "email"

// Config holds SMTP connection details and addresses.
type Config struct {
	Host      string
	Port      int
	Sender    string
	Password  string
	Recipient string
}

// Validate reports every missing setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("notify.email.smtp_host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("notify.email.smtp_port %d is out of range", c.Port))
	}
	if strings.TrimSpace(c.Sender) == "" {
		errs = append(errs, errors.New("sender address is required (SENDER_EMAIL)"))
	}
	if c.Password == "" {
		errs = append(errs, errors.New("sender password is required (EMAIL_PASSWORD)"))
	}
	if strings.TrimSpace(c.Recipient) == "" {
		errs = append(errs, errors.New("recipient address is required (RECIPIENT_EMAIL)"))
	}
	return errors.Join(errs...)
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Notifier sends plain-text email via STARTTLS with PLAIN auth.
type Notifier struct {
	cfg    Config
	client sender
}

// New validates cfg and prepares an SMTP client. No connection is made
// until the first Notify.
func New(cfg Config) (*Notifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Sender),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &Notifier{cfg: cfg, client: client}, nil
}

// Name implements notify.Channel.
func (n *Notifier) Name() string {
	return channelName
}

// Notify composes and sends one message.
func (n *Notifier) Notify(ctx context.Context, note monitor.Notification) error {
	msg, err := n.compose(note)
	if err != nil {
		return &monitor.NotificationError{Channel: channelName, Err: err}
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return &monitor.NotificationError{Channel: channelName, Err: fmt.Errorf("send: %w", err)}
	}
	return nil
}

func (n *Notifier) compose(note monitor.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.Sender); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(n.cfg.Recipient); err != nil {
		return nil, fmt.Errorf("set recipient address: %w", err)
	}
	msg.Subject(note.Subject)
	msg.SetBodyString(mail.TypeTextPlain, note.Text())
	return msg, nil
}
