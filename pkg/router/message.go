package router

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrParse marks a queued payload that is not valid message JSON.
	ErrParse = errors.New("malformed inbound message")
	// ErrEmptyMessage marks a payload that decodes to nothing actionable.
	ErrEmptyMessage = errors.New("empty inbound message")
)

// InboundMessage is the queued Telegram message, reduced to the fields routing uses.
type InboundMessage struct {
	MessageID int64     `json:"message_id,omitempty"`
	Chat      Chat      `json:"chat"`
	Text      string    `json:"text,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (m InboundMessage) isEmpty() bool {
	return m.Chat.ID == 0 && m.Text == "" && m.Location == nil
}

// DecodeMessage parses one queued payload.
func DecodeMessage(payload []byte) (InboundMessage, error) {
	var msg *InboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if msg == nil || msg.isEmpty() {
		return InboundMessage{}, ErrEmptyMessage
	}

	return *msg, nil
}
