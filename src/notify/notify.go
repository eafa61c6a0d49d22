package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xpwu/go-log/log"
)

// Notifier 告警通知
type Notifier interface {
	Alert(ctx context.Context, subject, message string) error
}

// Config 通知配置，Token 为空时只写日志
type Config struct {
	TelegramToken string `json:"telegram_token"` // Telegram Bot Token
	ChatID        int64  `json:"chat_id"`        // 接收告警的会话ID
}

// New 按配置创建通知器
func New(cfg Config) (Notifier, error) {
	if cfg.TelegramToken == "" || cfg.ChatID == 0 {
		return LogNotifier{}, nil
	}
	return NewTelegram(cfg.TelegramToken, cfg.ChatID)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram 通过 Telegram Bot 发送告警
type Telegram struct {
	bot    sender
	chatID int64
}

// NewTelegram 创建 Telegram 通知器
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Alert 发送告警，同时写错误日志
func (t *Telegram) Alert(ctx context.Context, subject, message string) error {
	_, logger := log.WithCtx(ctx)
	logger.PushPrefix("Telegram")
	logger.Error(subject, "message", message)

	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("⚠️ %s\n\n%s", subject, message))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram alert: %w", err)
	}
	return nil
}

// LogNotifier 只写日志的通知器
type LogNotifier struct{}

// Alert 写错误日志
func (LogNotifier) Alert(ctx context.Context, subject, message string) error {
	_, logger := log.WithCtx(ctx)
	logger.PushPrefix("Alert")
	logger.Error(subject, "message", message)
	return nil
}
