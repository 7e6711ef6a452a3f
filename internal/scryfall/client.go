// Package scryfall is the remote card catalog client.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
)

const (
	DefaultBaseURL = "https://api.scryfall.com"
	userAgent      = "cardvault/1.0"
)

// Client talks to the Scryfall REST API. Every request made through the
// client is spaced at least delay apart.
type Client struct {
	log        zerolog.Logger
	baseURL    string
	delay      time.Duration
	httpClient *http.Client
	bulkClient *http.Client
}

var _ domain.CardSource = (*Client)(nil)

// throttleTransport spaces requests and sets the headers the API asks for
type throttleTransport struct {
	Transport http.RoundTripper
	Delay     time.Duration

	mu   sync.Mutex
	last time.Time
}

func (t *throttleTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Transport == nil {
		t.Transport = http.DefaultTransport
	}

	if err := t.wait(req.Context()); err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return t.Transport.RoundTrip(req)
}

func (t *throttleTransport) wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Delay <= 0 {
		return nil
	}

	if wait := time.Until(t.last.Add(t.Delay)); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	t.last = time.Now()
	return nil
}

// NewClient creates a client for baseURL that waits delay between requests
func NewClient(log zerolog.Logger, baseURL string, delay time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	transport := &throttleTransport{Delay: delay}

	return &Client{
		log:     log.With().Str("module", "scryfall").Logger(),
		baseURL: strings.TrimRight(baseURL, "/"),
		delay:   delay,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		// bulk files are hundreds of megabytes, so no overall timeout
		bulkClient: &http.Client{
			Transport: transport,
		},
	}
}

type listResponse struct {
	Data     []json.RawMessage `json:"data"`
	HasMore  bool              `json:"has_more"`
	NextPage string            `json:"next_page"`
}

type errorResponse struct {
	Details string `json:"details"`
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// getJSON fetches url into v. A 404 is reported as domain.ErrNotFound.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	c.log.Trace().Str("url", url).Msg("GET")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to fetch")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Details != "" {
			return fmt.Errorf("unexpected status code %d from %s: %s", resp.StatusCode, url, e.Details)
		}
		return fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "failed to unmarshal response")
	}

	return nil
}

func (c *Client) getCard(ctx context.Context, url string) (*domain.CardRecord, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	card, err := domain.ParseCardRecord(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse card")
	}

	return &card, nil
}

func parseCards(log zerolog.Logger, data []json.RawMessage) []domain.CardRecord {
	cards := make([]domain.CardRecord, 0, len(data))
	for _, raw := range data {
		card, err := domain.ParseCardRecord(raw)
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed card")
			continue
		}
		cards = append(cards, card)
	}
	return cards
}
