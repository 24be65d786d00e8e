// Package session caches the latest venue search per conversation.
package session

import (
	"context"
	"errors"

	"venuebot/pkg/venue"
)

// ErrNotFound reports that a conversation has no cached search yet.
var ErrNotFound = errors.New("session not found")

// Store persists the most recent SearchResult per chat.
//
// Save overwrites the previous result; Load never mutates.
type Store interface {
	Save(ctx context.Context, chatID int64, result venue.SearchResult) error
	Load(ctx context.Context, chatID int64) (venue.SearchResult, error)
}
