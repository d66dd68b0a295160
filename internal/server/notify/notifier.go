package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/logging"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/models"
)

// New picks the transport named by cfg.MailTransport.
func New(cfg *config.Config, logger logging.Logger) (Notifier, error) {
	sender := Sender{From: cfg.MailFrom, FromName: cfg.MailFromName, ReplyTo: cfg.MailReplyTo}

	switch cfg.MailTransport {
	case config.MailTransportLog:
		return NewLogNotifier(sender, logger), nil
	case config.MailTransportSMTP:
		return NewSMTPNotifier(sender, SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
		}), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
	}
}

// LogNotifier renders the message and writes a log line instead of sending
// it. The rendered messages are kept for inspection.
type LogNotifier struct {
	sender Sender
	logger logging.Logger
	now    func() time.Time

	mu   sync.Mutex
	sent []Message
}

func NewLogNotifier(sender Sender, logger logging.Logger) *LogNotifier {
	return &LogNotifier{sender: sender, logger: logger, now: time.Now}
}

func (n *LogNotifier) Name() string { return config.MailTransportLog }

func (n *LogNotifier) SendConfirmation(ctx context.Context, p models.Participant) error {
	msg, err := BuildMessage(n.sender, p, n.now())
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.sent = append(n.sent, msg)
	n.mu.Unlock()

	n.logger.Info(ctx, "confirmation e-mail", "to", msg.To, "from", msg.From, "bytes", len(msg.Raw))
	return nil
}

// Sent returns a copy of the messages rendered so far.
func (n *LogNotifier) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.sent...)
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier hands the message to an SMTP relay. One attempt, no retries.
type SMTPNotifier struct {
	sender   Sender
	addr     string
	auth     smtp.Auth
	sendMail sendMailFunc
	now      func() time.Time
}

func NewSMTPNotifier(sender Sender, cfg SMTPConfig) *SMTPNotifier {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPNotifier{
		sender:   sender,
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:     auth,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

func (n *SMTPNotifier) Name() string { return config.MailTransportSMTP }

func (n *SMTPNotifier) SendConfirmation(ctx context.Context, p models.Participant) error {
	msg, err := BuildMessage(n.sender, p, n.now())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.sendMail(n.addr, n.auth, msg.From, []string{msg.To}, msg.Raw); err != nil {
		return fmt.Errorf("smtp %s: %w", n.addr, err)
	}
	return nil
}
