package services

import (
	"context"
	"fmt"

	"authservice/internal/models"
	"authservice/internal/utils"
)

type SMSService interface {
	Notifier
	Send(ctx context.Context, phone, text string) error
}

type smsService struct {
	client *utils.Client
}

func NewSMSService(client *utils.Client) SMSService {
	return &smsService{client: client}
}

func (s *smsService) Send(ctx context.Context, phone, text string) error {
	if _, err := s.client.SendSMS(ctx, phone, text); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}

func (s *smsService) Notify(ctx context.Context, n models.Notification) error {
	return s.Send(ctx, n.To, n.Text)
}
