package channel

import (
	"context"
	"fmt"
)

// Handler accepts one raw inbound event, already encoded for the queue.
type Handler func(ctx context.Context, payload []byte) error

// Adapter bridges one external transport (for example Telegram) into the queue.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}

// Sender delivers replies back to the originating conversation.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendLocation(ctx context.Context, chatID int64, lat, lng float64) error
	SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error
}

const (
	KindText     = "text"
	KindLocation = "location"
	KindPhoto    = "photo"
)

// DeliveryError reports a failed outbound send.
type DeliveryError struct {
	Kind   string
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("send %s to chat %d: %v", e.Kind, e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}
