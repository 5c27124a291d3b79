package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"authservice/internal/logging"
	"authservice/internal/models"
)

type EmailService interface {
	Notifier
	Send(ctx context.Context, to, subject, text, html string) error
}

type emailService struct {
	send     func(m ...*gomail.Message) error
	from     string
	fromName string
	log      *zap.Logger
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail, fromName string, log *zap.Logger) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		send:     dialer.DialAndSend,
		from:     fromEmail,
		fromName: fromName,
		log:      log.Named("email"),
	}
}

func (s *emailService) message(to, subject, text, html string) *gomail.Message {
	m := gomail.NewMessage()
	if s.fromName != "" {
		m.SetAddressHeader("From", s.from, s.fromName)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	switch {
	case text != "" && html != "":
		m.SetBody("text/plain", text)
		m.AddAlternative("text/html", html)
	case html != "":
		m.SetBody("text/html", html)
	default:
		m.SetBody("text/plain", text)
	}
	return m
}

func (s *emailService) Send(ctx context.Context, to, subject, text, html string) error {
	// gomail не умеет в context, проверяем хотя бы перед отправкой
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.message(to, subject, text, html)); err != nil {
		return fmt.Errorf("failed to send email %q: %w", subject, err)
	}
	s.log.Debug("email sent", zap.String("to", logging.MaskEmail(to)), zap.String("subject", subject))
	return nil
}

func (s *emailService) Notify(ctx context.Context, n models.Notification) error {
	return s.Send(ctx, n.To, n.Subject, n.Text, n.HTML)
}
