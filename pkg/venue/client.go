package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"venuebot/pkg/config"
	"venuebot/pkg/metrics"
)

const (
	explorePath = "/venues/explore"
	itemsPath   = "response.groups.0.items"

	maxResponseBytes = 4 << 20
	maxPhotoBytes    = 10 << 20
)

// Query is one explore call around a coordinate pair.
//
// Zero Section and Limit fall back to the client's configured values.
type Query struct {
	Lat     float64
	Lng     float64
	Section string
	Limit   int
}

// Client talks to the Foursquare venues API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	version      string
	section      string
	limit        int

	http           *http.Client
	requestTimeout time.Duration
	log            *slog.Logger
}

// NewClient validates venue API settings and constructs a client.
func NewClient(cfg config.FoursquareConfig, log *slog.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("foursquare.base_url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse foursquare.base_url: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	requestTimeout := cfg.RequestTimeout()
	if requestTimeout <= 0 {
		requestTimeout = config.DefaultRequestTimeout * time.Second
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = config.DefaultFoursquareLimit
	}
	section := strings.TrimSpace(cfg.Section)
	if section == "" {
		section = config.DefaultFoursquareSection
	}
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = config.DefaultFoursquareVersion
	}

	return &Client{
		baseURL:        baseURL,
		clientID:       strings.TrimSpace(cfg.ClientID),
		clientSecret:   strings.TrimSpace(cfg.ClientSecret),
		version:        version,
		section:        section,
		limit:          limit,
		http:           &http.Client{Timeout: requestTimeout},
		requestTimeout: requestTimeout,
		log:            log.With("component", "venue.client"),
	}, nil
}

// Search runs one explore query and maps the result into display order.
func (c *Client) Search(ctx context.Context, query Query) (SearchResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	log := c.log.With("operation", "search")
	startedAt := time.Now()
	log.Debug("venue request started", "ll", latLng(query.Lat, query.Lng))

	result, err := c.search(ctx, query)
	metrics.VenueLatency.Observe(time.Since(startedAt).Seconds())
	metrics.VenueRequests.WithLabelValues("search", metrics.Outcome(err)).Inc()
	if err != nil {
		log.Debug("venue request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return nil, err
	}

	log.Debug("venue request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "venues", len(result))
	return result, nil
}

func (c *Client) search(ctx context.Context, query Query) (SearchResult, error) {
	body, err := c.get(ctx, "search", c.exploreURL(query), maxResponseBytes)
	if err != nil {
		return nil, err
	}

	return parseExplore(body)
}

// exploreURL merges call-site options with the credential parameters.
func (c *Client) exploreURL(query Query) string {
	section := strings.TrimSpace(query.Section)
	if section == "" {
		section = c.section
	}
	limit := query.Limit
	if limit <= 0 {
		limit = c.limit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("ll", latLng(query.Lat, query.Lng))
	params.Set("section", section)
	params.Set("v", c.version)
	params.Set("client_id", c.clientID)
	params.Set("client_secret", c.clientSecret)

	return c.baseURL + explorePath + "?" + params.Encode()
}

// FetchPhoto downloads tip photo bytes.
func (c *Client) FetchPhoto(ctx context.Context, photoURL string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	startedAt := time.Now()
	data, err := c.get(ctx, "photo", photoURL, maxPhotoBytes)
	metrics.VenueRequests.WithLabelValues("photo", metrics.Outcome(err)).Inc()
	if err != nil {
		c.log.Debug("photo download failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return nil, err
	}

	c.log.Debug("photo downloaded", "duration_ms", time.Since(startedAt).Milliseconds(), "bytes", len(data))
	return data, nil
}

func (c *Client) get(ctx context.Context, op string, target string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: scrubURLError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &GatewayError{Op: op, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, &GatewayError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

// scrubURLError drops the request URL, which carries the client secret.
func scrubURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}

	return err
}

func latLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

type rawItem struct {
	Venue rawVenue `json:"venue"`
	Tips  []rawTip `json:"tips"`
}

type rawVenue struct {
	Name     string `json:"name"`
	Location struct {
		Address  string      `json:"address"`
		Lat      float64     `json:"lat"`
		Lng      float64     `json:"lng"`
		Distance json.Number `json:"distance"`
	} `json:"location"`
	Contact struct {
		Phone string `json:"phone"`
	} `json:"contact"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Hours struct {
		Status string `json:"status"`
	} `json:"hours"`
}

type rawTip struct {
	Text     string `json:"text"`
	PhotoURL string `json:"photourl"`
}

// parseExplore extracts the item list from an explore response body.
//
// An absent item path is an error; an empty list is zero venues.
func parseExplore(body []byte) (SearchResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, &GatewayError{Op: "search", Err: errors.New("response is not valid JSON")}
	}

	items := gjson.GetBytes(body, itemsPath)
	if !items.Exists() || !items.IsArray() {
		return nil, &GatewayError{Op: "search", Err: fmt.Errorf("response has no %s", itemsPath)}
	}

	var raw []rawItem
	if err := json.Unmarshal([]byte(items.Raw), &raw); err != nil {
		return nil, &GatewayError{Op: "search", Err: fmt.Errorf("decode venues: %w", err)}
	}

	result := make(SearchResult, 0, len(raw))
	for _, item := range raw {
		result = append(result, summarize(item))
	}

	return result, nil
}

// summarize applies the placeholder values for missing optional fields.
func summarize(item rawItem) Summary {
	v := item.Venue

	summary := Summary{
		Name:      v.Name,
		Address:   strings.TrimSpace(v.Location.Address),
		Lat:       v.Location.Lat,
		Lng:       v.Location.Lng,
		Phone:     orDefault(v.Contact.Phone, NoPhone),
		Category:  NoCategory,
		OpenHours: orDefault(v.Hours.Status, NoHoursInfo),
		Distance:  orDefault(v.Location.Distance.String(), NoDistance),
	}
	if len(v.Categories) > 0 {
		summary.Category = orDefault(v.Categories[0].Name, NoCategory)
	}

	for _, tip := range item.Tips {
		summary.Tips = append(summary.Tips, Tip{Text: tip.Text, PhotoURL: strings.TrimSpace(tip.PhotoURL)})
	}

	return summary
}

func orDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}
