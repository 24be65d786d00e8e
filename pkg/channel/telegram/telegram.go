package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"venuebot/pkg/channel"
	"venuebot/pkg/config"
	"venuebot/pkg/logger"

	"github.com/mymmrac/telego"
)

const channelName = "telegram"

// Adapter receives Telegram updates by long polling and hands each message on verbatim.
type Adapter struct {
	cfg config.TelegramConfig
	log *slog.Logger
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg: cfg,
		log: log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in status output and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and forwards every message to handler.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	bot, err := NewBot(a.cfg)
	if err != nil {
		return err
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	return a.forward(ctx, updates, handler)
}

// forward drains updates until ctx ends or the channel closes.
func (a *Adapter) forward(ctx context.Context, updates <-chan telego.Update, handler channel.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			payload, ok, err := encodeUpdate(update)
			if err != nil {
				a.log.Error("Failed to encode update", "update_id", update.UpdateID, "error", err)
				continue
			}
			if !ok {
				continue
			}

			message := update.Message
			a.log.Info("Received message",
				"chat_id", message.Chat.ID,
				"update_id", update.UpdateID,
				"has_location", message.Location != nil,
				"content", logger.Preview(message.Text),
			)

			if err := handler(ctx, payload); err != nil {
				a.log.Error("Failed to enqueue message", "chat_id", message.Chat.ID, "error", err)
			}
		}
	}
}

// encodeUpdate serializes the update's message as queued wire JSON.
//
// Updates without a message (edits, callbacks, channel posts) are skipped.
func encodeUpdate(update telego.Update) ([]byte, bool, error) {
	if update.Message == nil {
		return nil, false, nil
	}

	payload, err := json.Marshal(update.Message)
	if err != nil {
		return nil, false, fmt.Errorf("encode message: %w", err)
	}

	return payload, true, nil
}

// NewBot builds a Bot API client for the configured token.
func NewBot(cfg config.TelegramConfig) (*telego.Bot, error) {
	bot, err := telego.NewBot(strings.TrimSpace(cfg.Token))
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	return bot, nil
}
