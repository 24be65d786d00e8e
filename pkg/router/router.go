package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"venuebot/pkg/channel"
	"venuebot/pkg/session"
	"venuebot/pkg/venue"
)

// ErrIndexOutOfRange reports a /venueN or /tipsN beyond the cached result.
var ErrIndexOutOfRange = errors.New("venue index out of range")

const (
	noSuchVenueText = "No such venue, please send your location to search again."
	noResultsText   = "No venues found nearby, try another location."
)

// Searcher runs venue searches.
type Searcher interface {
	Search(ctx context.Context, query venue.Query) (venue.SearchResult, error)
}

// PhotoFetcher downloads tip photos.
type PhotoFetcher interface {
	FetchPhoto(ctx context.Context, url string) ([]byte, error)
}

// Router dispatches classified messages to the response handlers.
type Router struct {
	venues   Searcher
	photos   PhotoFetcher
	sessions session.Store
	sender   channel.Sender
	log      *slog.Logger
}

func New(venues Searcher, photos PhotoFetcher, sessions session.Store, sender channel.Sender, log *slog.Logger) (*Router, error) {
	if venues == nil {
		return nil, errors.New("venue searcher is required")
	}
	if photos == nil {
		return nil, errors.New("photo fetcher is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		venues:   venues,
		photos:   photos,
		sessions: sessions,
		sender:   sender,
		log:      log.With("component", "router"),
	}, nil
}

// Handle classifies msg and runs the matching handler to completion.
func (r *Router) Handle(ctx context.Context, msg InboundMessage) (Command, error) {
	cmd := Classify(msg)
	return cmd, r.Dispatch(ctx, msg.Chat.ID, cmd)
}

// Dispatch runs the handler for an already classified command.
func (r *Router) Dispatch(ctx context.Context, chatID int64, cmd Command) error {
	switch cmd.Kind {
	case KindLocation:
		return r.handleLocation(ctx, chatID, cmd.Lat, cmd.Lng)
	case KindVenue:
		return r.handleVenue(ctx, chatID, cmd.Index)
	case KindTips:
		return r.handleTips(ctx, chatID, cmd.Index)
	default:
		return nil
	}
}

// handleLocation searches around the point, stores the result, then lists it.
func (r *Router) handleLocation(ctx context.Context, chatID int64, lat, lng float64) error {
	result, err := r.venues.Search(ctx, venue.Query{Lat: lat, Lng: lng})
	if err != nil {
		r.log.Warn("Venue search failed", "chat_id", chatID, "error", err)
		return r.sender.SendText(ctx, chatID, err.Error())
	}

	if err := r.sessions.Save(ctx, chatID, result); err != nil {
		return fmt.Errorf("store search result: %w", err)
	}

	if len(result) == 0 {
		return r.sender.SendText(ctx, chatID, noResultsText)
	}

	return r.sender.SendText(ctx, chatID, venue.FormatList(result))
}

// handleVenue sends the pin and detail card, then the reminder list.
func (r *Router) handleVenue(ctx context.Context, chatID int64, index int) error {
	result, v, err := r.lookup(ctx, chatID, index)
	if err != nil {
		return err
	}

	if err := r.sender.SendLocation(ctx, chatID, v.Lat, v.Lng); err != nil {
		return err
	}
	if err := r.sender.SendText(ctx, chatID, venue.FormatDetail(v, index)); err != nil {
		return err
	}

	return r.sender.SendText(ctx, chatID, venue.FormatReminder(result))
}

// handleTips sends every tip in order, then the reminder list.
func (r *Router) handleTips(ctx context.Context, chatID int64, index int) error {
	result, v, err := r.lookup(ctx, chatID, index)
	if err != nil {
		return err
	}

	for i, tip := range v.Tips {
		if err := r.sendTip(ctx, chatID, tip); err != nil {
			return fmt.Errorf("tip %d: %w", i+1, err)
		}
	}

	return r.sender.SendText(ctx, chatID, venue.FormatReminder(result))
}

// sendTip delivers a photo tip as a captioned photo, falling back to text
// when the photo cannot be fetched.
func (r *Router) sendTip(ctx context.Context, chatID int64, tip venue.Tip) error {
	if tip.HasPhoto() {
		photo, err := r.photos.FetchPhoto(ctx, tip.PhotoURL)
		if err == nil {
			return r.sender.SendPhoto(ctx, chatID, photo, tip.Text)
		}
		r.log.Warn("Tip photo unavailable, sending text", "chat_id", chatID, "error", err)
	}

	if tip.Text == "" {
		return nil
	}

	return r.sender.SendText(ctx, chatID, tip.Text)
}

// lookup resolves index against the cached result.
//
// A missing session or an index outside 1..N is answered with a prompt to
// search again and reported as session.ErrNotFound or ErrIndexOutOfRange.
func (r *Router) lookup(ctx context.Context, chatID int64, index int) (venue.SearchResult, venue.Summary, error) {
	result, err := r.sessions.Load(ctx, chatID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, venue.Summary{}, r.replyNoSuchVenue(ctx, chatID, err)
	}
	if err != nil {
		return nil, venue.Summary{}, fmt.Errorf("load search result: %w", err)
	}

	v, ok := result.At(index)
	if !ok {
		return nil, venue.Summary{}, r.replyNoSuchVenue(ctx, chatID, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(result)))
	}

	return result, v, nil
}

func (r *Router) replyNoSuchVenue(ctx context.Context, chatID int64, cause error) error {
	if err := r.sender.SendText(ctx, chatID, noSuchVenueText); err != nil {
		return errors.Join(cause, err)
	}

	return cause
}
