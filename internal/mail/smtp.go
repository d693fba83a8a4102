package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/telhawk-systems/telhawk-reporting/internal/logging"
)

const defaultSMTPPort = 587

// SMTPConfig holds the connection settings for outbound mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// SMTPMailer sends the notification through an SMTP relay.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *logging.Logger
}

func NewSMTPMailer(cfg SMTPConfig, logger *logging.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail host is required")
	}
	if cfg.Sender == "" {
		return nil, errors.New("mail sender is required")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SMTPMailer{cfg: cfg, logger: logger}, nil
}

func (m *SMTPMailer) Mode() string { return "send" }

func (m *SMTPMailer) Deliver(ctx context.Context, msg Message) error {
	message, err := compose(m.cfg.Sender, msg)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}

	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("failed to send report mail: %w", err)
	}

	m.logger.InfoContext(ctx, "report mail sent",
		logging.Component("mail"),
		logging.Recipients(len(msg.To)+len(msg.CC)+len(msg.BCC)),
		logging.Artifact(msg.Subject))
	return nil
}
