// Package mailer delivers verification and welcome emails.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/config"
	"github.com/wneessen/go-mail"
)

// sender is the part of *mail.Client the mailer uses.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPMailer struct {
	client    sender
	from      string
	brand     string
	clientURL string
	otpTTL    time.Duration
}

func NewSMTPMailer(cfg *config.Config) (*SMTPMailer, error) {
	client, err := mail.NewClient(cfg.SMTPHost,
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SMTPUser),
		mail.WithPassword(cfg.SMTPPass),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return newSMTPMailer(client, cfg), nil
}

func newSMTPMailer(client sender, cfg *config.Config) *SMTPMailer {
	from := cfg.MailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &SMTPMailer{
		client:    client,
		from:      from,
		brand:     cfg.BrandName,
		clientURL: cfg.ClientURL,
		otpTTL:    cfg.OTPTTL,
	}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, name, code string) error {
	msg, err := m.newMessage(to, fmt.Sprintf("%s - Email Verification OTP", m.brand))
	if err != nil {
		return err
	}
	data := otpData{Brand: m.brand, Name: name, Code: code, Minutes: int(m.otpTTL / time.Minute)}
	if err := msg.SetBodyTextTemplate(otpText, data); err != nil {
		return fmt.Errorf("render otp text: %w", err)
	}
	if err := msg.AddAlternativeHTMLTemplate(otpHTML, data); err != nil {
		return fmt.Errorf("render otp html: %w", err)
	}
	return m.send(ctx, msg)
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name string) error {
	msg, err := m.newMessage(to, fmt.Sprintf("Welcome to %s!", m.brand))
	if err != nil {
		return err
	}
	data := welcomeData{Brand: m.brand, Name: name, ClientURL: m.clientURL}
	if err := msg.SetBodyTextTemplate(welcomeText, data); err != nil {
		return fmt.Errorf("render welcome text: %w", err)
	}
	if err := msg.AddAlternativeHTMLTemplate(welcomeHTML, data); err != nil {
		return fmt.Errorf("render welcome html: %w", err)
	}
	return m.send(ctx, msg)
}

func (m *SMTPMailer) newMessage(to, subject string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.brand, m.from); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	return msg, nil
}

func (m *SMTPMailer) send(ctx context.Context, msg *mail.Msg) error {
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer writes codes to the log instead of sending them. It is used when
// SMTP is not configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOTP(_ context.Context, to, _, code string) error {
	m.logger.Info("email not configured, otp not sent", "action", "send_otp", "to", to, "otp", code)
	return nil
}

func (m *LogMailer) SendWelcome(_ context.Context, to, _ string) error {
	m.logger.Info("email not configured, welcome not sent", "action", "send_welcome", "to", to)
	return nil
}
