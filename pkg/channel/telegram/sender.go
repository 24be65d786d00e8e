package telegram

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"venuebot/pkg/channel"
	"venuebot/pkg/config"
	"venuebot/pkg/metrics"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const photoFileName = "tip.jpg"

// botAPI is the subset of *telego.Bot used for delivery.
type botAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendLocation(ctx context.Context, params *telego.SendLocationParams) (*telego.Message, error)
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
}

// Sender delivers text, location and photo replies through the Bot API.
type Sender struct {
	bot            botAPI
	requestTimeout time.Duration
	log            *slog.Logger
}

// NewSender builds a Sender with its own Bot API client.
func NewSender(cfg config.TelegramConfig, log *slog.Logger) (*Sender, error) {
	bot, err := NewBot(cfg)
	if err != nil {
		return nil, err
	}

	return newSender(bot, cfg.RequestTimeout(), log), nil
}

func newSender(bot botAPI, requestTimeout time.Duration, log *slog.Logger) *Sender {
	if log == nil {
		log = slog.Default()
	}

	return &Sender{
		bot:            bot,
		requestTimeout: requestTimeout,
		log:            log.With("component", "channel.telegram.sender"),
	}
}

func (s *Sender) SendText(ctx context.Context, chatID int64, text string) error {
	return s.send(ctx, channel.KindText, chatID, func(ctx context.Context) error {
		_, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
		return err
	})
}

func (s *Sender) SendLocation(ctx context.Context, chatID int64, lat, lng float64) error {
	return s.send(ctx, channel.KindLocation, chatID, func(ctx context.Context) error {
		_, err := s.bot.SendLocation(ctx, tu.Location(tu.ID(chatID), lat, lng))
		return err
	})
}

func (s *Sender) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error {
	if len(photo) == 0 {
		return &channel.DeliveryError{Kind: channel.KindPhoto, ChatID: chatID, Err: errors.New("empty photo")}
	}

	return s.send(ctx, channel.KindPhoto, chatID, func(ctx context.Context) error {
		file := tu.File(tu.NameReader(bytes.NewReader(photo), photoFileName))
		_, err := s.bot.SendPhoto(ctx, tu.Photo(tu.ID(chatID), file).WithCaption(caption))
		return err
	})
}

// send bounds one Bot API call and wraps failures as DeliveryError.
func (s *Sender) send(ctx context.Context, kind string, chatID int64, call func(context.Context) error) error {
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	if err := call(ctx); err != nil {
		metrics.DeliveryFailures.WithLabelValues(kind).Inc()
		s.log.Error("Failed to send telegram message", "kind", kind, "chat_id", chatID, "error", err)
		return &channel.DeliveryError{Kind: kind, ChatID: chatID, Err: err}
	}

	s.log.Debug("Sent telegram message", "kind", kind, "chat_id", chatID)
	return nil
}
