// Package feed implements the TfNSW live hazards API client: categorized
// fetches with endpoint variant fallback, inter-request pacing, and
// cross-category deduplication into one merged FeatureCollection.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/traffic-hazard-watch/internal/domain"
	"github.com/couchcryptid/traffic-hazard-watch/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultBaseURL is the production TfNSW live hazards endpoint.
const DefaultBaseURL = "https://api.transport.nsw.gov.au/v1/live/hazards"

var (
	// ErrInvalidAPIKey marks a 401 from the feed. Retrying other endpoint
	// variants cannot fix bad credentials, so the whole fetch is aborted.
	ErrInvalidAPIKey = errors.New("invalid api key")

	// ErrForbidden marks a 403 (permissions or IP allow-listing). The
	// affected category is skipped but other categories are still fetched.
	ErrForbidden = errors.New("access forbidden")

	// ErrDataShape marks a response that decoded as JSON but is not a
	// feature collection; the category is skipped without further variants.
	ErrDataShape = errors.New("response is not a feature collection")
)

// Client fetches hazard categories from the live feed.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	requestDelay time.Duration
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewClient creates a feed client. The timeout bounds each individual
// request attempt; requestDelay is the pause between successive category
// fetches to respect upstream rate limits.
func NewClient(apiKey, baseURL string, timeout, requestDelay time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		requestDelay: requestDelay,
		clock:        clockwork.NewRealClock(),
		logger:       logger,
		metrics:      metrics,
	}
}

// Fetch retrieves the requested categories and merges them into one
// FeatureCollection, deduplicating by feature id across categories
// (first-seen wins; features without an id are always kept).
//
// An empty category list yields an empty collection, not an error. A 401
// aborts everything and the error wraps ErrInvalidAPIKey. A 403 skips that
// category; the merged result of the remaining categories is still
// returned, alongside an error wrapping ErrForbidden so callers can see
// the pass was degraded. Transient failures exhaust the category's
// endpoint variants and then skip the category with only logged
// diagnostics.
func (c *Client) Fetch(ctx context.Context, categories []string) (domain.FeatureCollection, error) {
	fc := domain.NewFeatureCollection()
	if len(categories) == 0 {
		c.logger.Debug("no hazard categories selected, returning empty collection")
		return fc, nil
	}
	if c.apiKey == "" {
		return fc, fmt.Errorf("api key not configured: %w", ErrInvalidAPIKey)
	}

	seen := make(map[string]struct{})
	var forbidden []string

	for i, category := range categories {
		if i > 0 && !c.pause(ctx) {
			return fc, ctx.Err()
		}

		features, err := c.fetchCategory(ctx, category)
		switch {
		case errors.Is(err, ErrInvalidAPIKey):
			c.metrics.CategoryFailures.WithLabelValues(category, "auth").Inc()
			return domain.NewFeatureCollection(), err
		case errors.Is(err, ErrForbidden):
			c.metrics.CategoryFailures.WithLabelValues(category, "forbidden").Inc()
			c.logger.Error("category forbidden, check API permissions or IP allow-listing", "category", category, "error", err)
			forbidden = append(forbidden, category)
			continue
		case errors.Is(err, ErrDataShape):
			c.metrics.CategoryFailures.WithLabelValues(category, "shape").Inc()
			c.logger.Warn("category returned unrecognized payload, skipping", "category", category, "error", err)
			continue
		case err != nil:
			if ctx.Err() != nil {
				return fc, ctx.Err()
			}
			c.metrics.CategoryFailures.WithLabelValues(category, "transient").Inc()
			c.logger.Warn("category fetch failed on all endpoint variants, skipping", "category", category, "error", err)
			continue
		}

		for _, f := range features {
			f.Category = category
			id := string(f.ID)
			if id == "" {
				// No id means no deduplication is possible; keep the feature.
				c.logger.Warn("feature without id kept without deduplication", "category", category)
				fc.Features = append(fc.Features, f)
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			fc.Features = append(fc.Features, f)
		}
	}

	c.logger.Info("hazard fetch complete",
		"categories", len(categories), "unique_features", len(fc.Features), "forbidden", len(forbidden))

	if len(forbidden) > 0 {
		return fc, fmt.Errorf("categories %v: %w", forbidden, ErrForbidden)
	}
	return fc, nil
}

// fetchCategory walks the endpoint variants for one category until one
// returns a valid collection.
func (c *Client) fetchCategory(ctx context.Context, category string) ([]domain.Feature, error) {
	fb := newFallback(category)
	for {
		path, ok := fb.next()
		if !ok {
			return nil, fmt.Errorf("all endpoint variants exhausted: %w", fb.lastErr)
		}

		features, err := c.request(ctx, path)
		if err == nil {
			return features, nil
		}
		if !fb.fail(err) {
			if errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrDataShape) {
				return nil, err
			}
			return nil, fmt.Errorf("all endpoint variants exhausted: %w", err)
		}
		c.logger.Debug("endpoint variant failed, trying next", "category", category, "path", path, "error", err)
	}
}

// request performs one attempt against a single endpoint variant.
func (c *Client) request(ctx context.Context, path string) ([]domain.Feature, error) {
	url := fmt.Sprintf("%s/%s?format=geojson", c.baseURL, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "apikey "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%s: %w", url, ErrInvalidAPIKey)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w", url, ErrForbidden)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, body)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "json") {
		return nil, fmt.Errorf("unexpected content type %q", contentType)
	}

	var payload struct {
		Type     string            `json:"type"`
		Features *[]domain.Feature `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Features == nil {
		return nil, fmt.Errorf("%s: missing features list: %w", url, ErrDataShape)
	}
	return *payload.Features, nil
}

// pause sleeps the configured inter-request delay, returning false if the
// context was cancelled first.
func (c *Client) pause(ctx context.Context) bool {
	if c.requestDelay <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(c.requestDelay):
		return true
	}
}
