package email

import (
	"context"
	"log"

	"gopkg.in/gomail.v2"

	"swisswheels/app/internal/config"
)

// Sender delivers an email message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// GomailSender implements Sender over SMTP via gomail.
type GomailSender struct {
	cfg    *config.Config
	dialer *gomail.Dialer
}

// NewSender creates an SMTP-backed sender, or a logging sender when no SMTP
// host is configured.
func NewSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Println("SMTP host not configured, using logging email sender.")
		return &LoggingSender{cfg: cfg}
	}
	return &GomailSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SmtpHost, cfg.SmtpPort, cfg.SmtpUsername, cfg.SmtpPassword),
	}
}

// Send sends an email using SMTP.
func (s *GomailSender) Send(_ context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.SmtpFromAddress)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

// LoggingSender logs email details instead of sending.
type LoggingSender struct {
	cfg *config.Config
}

// Send logs the email details.
func (s *LoggingSender) Send(_ context.Context, to, subject, body string) error {
	log.Printf("--- Sending Email (Logged) ---")
	log.Printf("From: %s", s.cfg.SmtpFromAddress)
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Println(body)
	log.Println("--- End Email ---")
	return nil
}
