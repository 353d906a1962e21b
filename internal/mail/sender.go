package mail

import (
	"fmt"
	"net/smtp"

	"github.com/theLastOfCats/storefront/internal/config"
	"github.com/theLastOfCats/storefront/internal/logger"
)

type MailSender interface {
	Send(to string, subject string, textBody string, htmlBody string) error
}

// ConsoleMailSender logs mails instead of delivering them.
type ConsoleMailSender struct{}

func (s *ConsoleMailSender) Send(to string, subject string, textBody string, htmlBody string) error {
	logger.Logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("text", textBody).
		Msg("mail not delivered (console provider)")
	return nil
}

type SmtpMailSender struct {
	config config.Mail
}

func NewSmtpMailSender(cfg config.Mail) *SmtpMailSender {
	return &SmtpMailSender{config: cfg}
}

func (s *SmtpMailSender) Send(to string, subject string, textBody string, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	address := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)

	contentType := "text/html"
	body := htmlBody
	if htmlBody == "" {
		contentType = "text/plain"
		body = textBody
	}

	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-version: 1.0;\r\nContent-Type: %s; charset=\"UTF-8\";\r\n\r\n"+
		"%s", to, s.config.From, subject, contentType, body))

	if err := smtp.SendMail(address, auth, s.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func NewSender(cfg config.Mail) MailSender {
	if cfg.Provider == "smtp" {
		return NewSmtpMailSender(cfg)
	}
	return &ConsoleMailSender{}
}
