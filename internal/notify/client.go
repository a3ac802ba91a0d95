package notify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

// Mailer delivers rendered outcome messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Enabled() bool
}

// NewMailer builds a Mailer from cfg. When notifications are disabled a
// no-op mailer is returned so callers need no branching.
func NewMailer(cfg Config) (Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return noopMailer{}, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create smtp client")
	}
	return &smtpMailer{cfg: cfg, client: client}, nil
}

type smtpMailer struct {
	cfg    Config
	client *mail.Client
}

func (m *smtpMailer) Enabled() bool { return true }

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	mm := mail.NewMsg()
	if err := mm.From(m.cfg.From); err != nil {
		return errors.Wrap(err, "set sender")
	}
	if err := mm.To(m.cfg.Admin); err != nil {
		return errors.Wrap(err, "set recipient")
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := m.client.DialAndSendWithContext(ctx, mm); err != nil {
		return errors.Wrapf(err, "send mail to %s", m.cfg.Admin)
	}

	logrus.WithFields(logrus.Fields{"to": m.cfg.Admin, "subject": msg.Subject}).Info("notification sent")
	return nil
}

// noopMailer drops messages when notifications are disabled.
type noopMailer struct{}

func (noopMailer) Enabled() bool { return false }

func (noopMailer) Send(ctx context.Context, msg Message) error {
	logrus.WithField("subject", msg.Subject).Debug("notifications disabled, dropping message")
	return nil
}
