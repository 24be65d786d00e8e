package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"venuebot/pkg/session"
	"venuebot/pkg/venue"
)

// event is one observable side effect, recorded in global order.
type event struct {
	Kind    string
	ChatID  int64
	Text    string
	Lat     float64
	Lng     float64
	Photo   string
	Session venue.SearchResult
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type recordingSender struct {
	rec     *recorder
	failOn  string
	failErr error
}

func (s *recordingSender) SendText(_ context.Context, chatID int64, text string) error {
	if s.failOn == "text" {
		return s.failErr
	}
	s.rec.add(event{Kind: "text", ChatID: chatID, Text: text})
	return nil
}

func (s *recordingSender) SendLocation(_ context.Context, chatID int64, lat, lng float64) error {
	if s.failOn == "location" {
		return s.failErr
	}
	s.rec.add(event{Kind: "location", ChatID: chatID, Lat: lat, Lng: lng})
	return nil
}

func (s *recordingSender) SendPhoto(_ context.Context, chatID int64, photo []byte, caption string) error {
	if s.failOn == "photo" {
		return s.failErr
	}
	s.rec.add(event{Kind: "photo", ChatID: chatID, Text: caption, Photo: string(photo)})
	return nil
}

// recordingStore wraps a real store and records each save.
type recordingStore struct {
	session.Store
	rec     *recorder
	saveErr error
}

func (s *recordingStore) Save(ctx context.Context, chatID int64, result venue.SearchResult) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.rec.add(event{Kind: "save", ChatID: chatID, Session: result})
	return s.Store.Save(ctx, chatID, result)
}

type fakeSearcher struct {
	result  venue.SearchResult
	err     error
	queries []venue.Query
}

func (f *fakeSearcher) Search(_ context.Context, query venue.Query) (venue.SearchResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return append(venue.SearchResult(nil), f.result...), nil
}

type fakePhotos struct {
	photos map[string]string
}

func (f *fakePhotos) FetchPhoto(_ context.Context, url string) ([]byte, error) {
	data, ok := f.photos[url]
	if !ok {
		return nil, fmt.Errorf("photo %s: not found", url)
	}
	return []byte(data), nil
}

type harness struct {
	rec      *recorder
	searcher *fakeSearcher
	store    *recordingStore
	sender   *recordingSender
	router   *Router
}

func newHarness(t *testing.T, result venue.SearchResult) *harness {
	t.Helper()

	rec := &recorder{}
	h := &harness{
		rec:      rec,
		searcher: &fakeSearcher{result: result},
		store:    &recordingStore{Store: session.NewMemoryStore(), rec: rec},
		sender:   &recordingSender{rec: rec},
	}

	photos := &fakePhotos{photos: map[string]string{"https://img.example/slice.jpg": "slice-bytes"}}
	router, err := New(h.searcher, photos, h.store, h.sender, nil)
	require.NoError(t, err)
	h.router = router
	return h
}

var joesAndDeli = venue.SearchResult{
	{
		Name: "Joe's Pizza", Address: "123 Main St", Lat: 40.7, Lng: -74.0,
		Phone: "+1 555 0100", Category: "Pizza Place", OpenHours: "Open", Distance: "42",
		Tips: []venue.Tip{
			{Text: "Get the plain slice", PhotoURL: "https://img.example/slice.jpg"},
			{Text: "Cash only"},
			{Text: "Great crust", PhotoURL: "https://img.example/missing.jpg"},
		},
	},
	{
		Name: "Deli Corner", Lat: 40.71, Lng: -74.01,
		Phone: venue.NoPhone, Category: venue.NoCategory, OpenHours: venue.NoHoursInfo, Distance: venue.NoDistance,
	},
}

const joesAndDeliListing = "/venue1 Joe's Pizza, 123 Main St\n/venue2 Deli Corner, Exact address unspecified"

func locationMessage(chatID int64) InboundMessage {
	return InboundMessage{Chat: Chat{ID: chatID}, Location: &Location{Latitude: 40.7, Longitude: -74.0}}
}

func textMessage(chatID int64, text string) InboundMessage {
	return InboundMessage{Chat: Chat{ID: chatID}, Text: text}
}

func TestLocationSearchStoresBeforeListing(t *testing.T) {
	h := newHarness(t, joesAndDeli)

	cmd, err := h.router.Handle(context.Background(), locationMessage(100))
	require.NoError(t, err)
	require.Equal(t, KindLocation, cmd.Kind)

	require.Equal(t, []venue.Query{{Lat: 40.7, Lng: -74.0}}, h.searcher.queries)

	events := h.rec.snapshot()
	require.Len(t, events, 2)
	require.Equal(t, "save", events[0].Kind)
	require.Equal(t, joesAndDeli, events[0].Session)
	require.Equal(t, event{Kind: "text", ChatID: 100, Text: joesAndDeliListing}, events[1])

	stored, err := h.store.Load(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, joesAndDeli, stored)
}

func TestLocationSearchIsRepeatable(t *testing.T) {
	h := newHarness(t, joesAndDeli)
	ctx := context.Background()

	_, err := h.router.Handle(ctx, locationMessage(100))
	require.NoError(t, err)
	first, err := h.store.Load(ctx, 100)
	require.NoError(t, err)

	_, err = h.router.Handle(ctx, locationMessage(100))
	require.NoError(t, err)
	second, err := h.store.Load(ctx, 100)
	require.NoError(t, err)

	require.Equal(t, first, second)

	var listings []string
	for _, e := range h.rec.snapshot() {
		if e.Kind == "text" {
			listings = append(listings, e.Text)
		}
	}
	require.Equal(t, []string{joesAndDeliListing, joesAndDeliListing}, listings)
}

func TestLocationSearchGatewayErrorRepliesWithoutSession(t *testing.T) {
	h := newHarness(t, nil)
	h.searcher.err = &venue.GatewayError{Op: "search", Err: errors.New("response has no response.groups.0.items")}

	_, err := h.router.Handle(context.Background(), locationMessage(5))
	require.NoError(t, err)

	events := h.rec.snapshot()
	require.Equal(t, []event{{Kind: "text", ChatID: 5, Text: "venue search: response has no response.groups.0.items"}}, events)

	_, err = h.store.Load(context.Background(), 5)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestLocationSearchSaveFailureSkipsListing(t *testing.T) {
	h := newHarness(t, joesAndDeli)
	h.store.saveErr = errors.New("redis down")

	_, err := h.router.Handle(context.Background(), locationMessage(5))
	require.Error(t, err)
	require.Empty(t, h.rec.snapshot())
}

func TestLocationSearchWithNoVenues(t *testing.T) {
	h := newHarness(t, venue.SearchResult{})

	_, err := h.router.Handle(context.Background(), locationMessage(5))
	require.NoError(t, err)

	events := h.rec.snapshot()
	require.Len(t, events, 2)
	require.Equal(t, "save", events[0].Kind)
	require.Equal(t, noResultsText, events[1].Text)
}

func TestVenueCommandResolvesDisplayPosition(t *testing.T) {
	h := newHarness(t, joesAndDeli)
	ctx := context.Background()

	_, err := h.router.Handle(ctx, locationMessage(100))
	require.NoError(t, err)

	for i, want := range joesAndDeli {
		h.rec.reset()
		index := i + 1

		cmd, err := h.router.Handle(ctx, textMessage(100, fmt.Sprintf("/venue%d", index)))
		require.NoError(t, err)
		require.Equal(t, Command{Kind: KindVenue, Index: index}, cmd)

		events := h.rec.snapshot()
		require.Len(t, events, 3)
		require.Equal(t, event{Kind: "location", ChatID: 100, Lat: want.Lat, Lng: want.Lng}, events[0])
		require.Equal(t, venue.FormatDetail(want, index), events[1].Text)
		require.Contains(t, events[1].Text, want.Name+",")
		require.Contains(t, events[1].Text, fmt.Sprintf("More: /tips%d", index))
		require.Equal(t, "Other venues:\n"+joesAndDeliListing, events[2].Text)
	}
}

func TestVenueDetailFallbacks(t *testing.T) {
	h := newHarness(t, joesAndDeli)
	ctx := context.Background()

	_, err := h.router.Handle(ctx, locationMessage(1))
	require.NoError(t, err)
	h.rec.reset()

	_, err = h.router.Handle(ctx, textMessage(1, "/venue2"))
	require.NoError(t, err)

	events := h.rec.snapshot()
	require.Equal(t,
		"Deli Corner,\nPhone: no phone\nCategory: no category\nOpen hours: no info\nNo address (000m)\nMore: /tips2",
		events[1].Text,
	)
}

func TestTipsDeliveredInOrderByKind(t *testing.T) {
	h := newHarness(t, joesAndDeli)
	ctx := context.Background()

	_, err := h.router.Handle(ctx, locationMessage(100))
	require.NoError(t, err)
	h.rec.reset()

	cmd, err := h.router.Handle(ctx, textMessage(100, "/tips1"))
	require.NoError(t, err)
	require.Equal(t, KindTips, cmd.Kind)

	require.Equal(t, []event{
		{Kind: "photo", ChatID: 100, Text: "Get the plain slice", Photo: "slice-bytes"},
		{Kind: "text", ChatID: 100, Text: "Cash only"},
		// Photo fetch failure degrades to the tip text.
		{Kind: "text", ChatID: 100, Text: "Great crust"},
		{Kind: "text", ChatID: 100, Text: "Other venues:\n" + joesAndDeliListing},
	}, h.rec.snapshot())
}

func TestTipsForVenueWithoutTipsSendsOnlyReminder(t *testing.T) {
	h := newHarness(t, joesAndDeli)
	ctx := context.Background()

	_, err := h.router.Handle(ctx, locationMessage(100))
	require.NoError(t, err)
	h.rec.reset()

	_, err = h.router.Handle(ctx, textMessage(100, "/tips2"))
	require.NoError(t, err)
	require.Equal(t, []event{{Kind: "text", ChatID: 100, Text: "Other venues:\n" + joesAndDeliListing}}, h.rec.snapshot())
}

func TestTipsWithoutTextOrPhotoAreSkipped(t *testing.T) {
	result := venue.SearchResult{{
		Name: "Quiet Cafe", Address: "9 Side St",
		Tips: []venue.Tip{
			{Text: ""},
			{Text: "second"},
			// Photo unavailable and nothing to fall back to.
			{Text: "", PhotoURL: "https://img.example/missing.jpg"},
		},
	}}
	h := newHarness(t, result)
	ctx := context.Background()

	_, err := h.router.Handle(ctx, locationMessage(100))
	require.NoError(t, err)
	h.rec.reset()

	_, err = h.router.Handle(ctx, textMessage(100, "/tips1"))
	require.NoError(t, err)
	require.Equal(t, []event{
		{Kind: "text", ChatID: 100, Text: "second"},
		{Kind: "text", ChatID: 100, Text: "Other venues:\n/venue1 Quiet Cafe, 9 Side St"},
	}, h.rec.snapshot())
}

func TestOutOfRangeIndexRepliesNoSuchVenue(t *testing.T) {
	h := newHarness(t, venue.SearchResult{{Name: "Only One", Address: "1 Road"}})
	ctx := context.Background()

	_, err := h.router.Handle(ctx, locationMessage(7))
	require.NoError(t, err)
	h.rec.reset()

	for _, text := range []string{"/venue2", "/tips2", "/venue0"} {
		h.rec.reset()

		_, err := h.router.Handle(ctx, textMessage(7, text))
		require.ErrorIs(t, err, ErrIndexOutOfRange, text)
		require.Equal(t, []event{{Kind: "text", ChatID: 7, Text: noSuchVenueText}}, h.rec.snapshot(), text)
	}

	// The cached search is untouched.
	stored, err := h.store.Load(ctx, 7)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestMissingSessionRepliesNoSuchVenue(t *testing.T) {
	h := newHarness(t, joesAndDeli)

	_, err := h.router.Handle(context.Background(), textMessage(8, "/venue1"))
	require.ErrorIs(t, err, session.ErrNotFound)
	require.Equal(t, []event{{Kind: "text", ChatID: 8, Text: noSuchVenueText}}, h.rec.snapshot())
}

func TestDeliveryErrorStopsHandler(t *testing.T) {
	h := newHarness(t, joesAndDeli)
	ctx := context.Background()

	_, err := h.router.Handle(ctx, locationMessage(1))
	require.NoError(t, err)
	h.rec.reset()

	h.sender.failOn = "location"
	h.sender.failErr = errors.New("bot blocked")

	_, err = h.router.Handle(ctx, textMessage(1, "/venue1"))
	require.ErrorContains(t, err, "bot blocked")
	require.Empty(t, h.rec.snapshot())
}

func TestUnrecognizedMessagesAreIgnored(t *testing.T) {
	h := newHarness(t, joesAndDeli)

	cmd, err := h.router.Handle(context.Background(), textMessage(1, "hello there"))
	require.NoError(t, err)
	require.Equal(t, KindUnrecognized, cmd.Kind)
	require.Empty(t, h.rec.snapshot())
	require.Empty(t, h.searcher.queries)
}

func TestNewValidatesDependencies(t *testing.T) {
	rec := &recorder{}
	sender := &recordingSender{rec: rec}
	store := session.NewMemoryStore()
	searcher := &fakeSearcher{}
	photos := &fakePhotos{}

	_, err := New(nil, photos, store, sender, nil)
	require.Error(t, err)
	_, err = New(searcher, nil, store, sender, nil)
	require.Error(t, err)
	_, err = New(searcher, photos, nil, sender, nil)
	require.Error(t, err)
	_, err = New(searcher, photos, store, nil, nil)
	require.Error(t, err)
}
