package services

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"authservice/internal/models"
)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramService posts operator alerts to a chat through the bot API.
type TelegramService struct {
	bot    botSender
	chatID int64
	log    *zap.Logger
}

// NewTelegramService calls getMe, so it fails fast on a bad token.
func NewTelegramService(botToken string, chatID int64, log *zap.Logger) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Named("telegram").Info("bot authorized", zap.String("username", bot.Self.UserName))
	return newTelegramService(bot, chatID, log), nil
}

func newTelegramService(bot botSender, chatID int64, log *zap.Logger) *TelegramService {
	return &TelegramService{bot: bot, chatID: chatID, log: log.Named("telegram")}
}

func (t *TelegramService) SendMessage(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		t.log.Warn("skip message: empty chat id")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

// Notify sends to n.To when it is a chat id, to the alert chat otherwise.
func (t *TelegramService) Notify(ctx context.Context, n models.Notification) error {
	chatID := t.chatID
	if n.To != "" {
		id, err := strconv.ParseInt(n.To, 10, 64)
		if err != nil {
			return fmt.Errorf("telegram chat id %q: %w", n.To, err)
		}
		chatID = id
	}
	return t.SendMessage(ctx, chatID, n.Text)
}
