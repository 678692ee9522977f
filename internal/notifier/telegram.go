package notifier

import (
	"context"
	"time"
	"yieldpool/internal/models"
	"yieldpool/internal/util"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramPublisher posts burn, refund, completion and lottery events to a
// chat.
type TelegramPublisher struct {
	sender MessageSender
	chatId int64
	token  string
}

func NewTelegramPublisher(sender MessageSender, chatId int64, token string) *TelegramPublisher {
	return &TelegramPublisher{sender: sender, chatId: chatId, token: token}
}

// DialTelegram creates the bot client for botToken.
func DialTelegram(botToken string, chatId int64, token string) (*TelegramPublisher, error) {
	b, err := bot.New(botToken)
	if err != nil {
		log.Error("Failed to create telegram bot: ", err)
		return nil, err
	}
	return NewTelegramPublisher(b, chatId, token), nil
}

func (p *TelegramPublisher) Publish(ctx context.Context, events []models.Event) error {
	for _, e := range events {
		text := util.EventMessage(e, p.token)
		if text == "" {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := p.sender.SendMessage(sendCtx, &bot.SendMessageParams{
			ChatID:    p.chatId,
			Text:      text,
			ParseMode: tgmodels.ParseModeHTML,
		})
		cancel()
		if err != nil {
			log.Error("Failed to send message: ", err)
			return err
		}
	}
	return nil
}
