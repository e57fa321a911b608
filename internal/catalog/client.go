// Package catalog looks up cover art and audio previews in the iTunes Search API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rpggio/hitparade/internal/domain/enrich"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://itunes.apple.com"
	defaultTimeout = 12 * time.Second
	defaultRate    = 5.0
	searchLimit    = 5
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
	maxBodyBytes   = 2 << 20
)

// Lookup outcomes reported to the Recorder.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var artworkSize = regexp.MustCompile(`/\d+x\d+bb\.(jpg|png)$`)

// Recorder observes lookup outcomes.
type Recorder interface {
	CatalogLookup(outcome string)
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	Country       string
	Timeout       time.Duration
	RatePerSecond float64
	HTTPClient    *http.Client
	Recorder      Recorder
	Logger        *slog.Logger
}

// Client handles communication with the catalog search API
type Client struct {
	baseURL  string
	country  string
	client   *http.Client
	limiter  *rate.Limiter
	group    singleflight.Group
	recorder Recorder
	logger   *slog.Logger
	backoff  time.Duration
}

// NewClient creates a new catalog client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = defaultRate
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		country:  opts.Country,
		client:   opts.HTTPClient,
		limiter:  rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		recorder: opts.Recorder,
		logger:   opts.Logger,
		backoff:  initialBackoff,
	}
}

// searchResponse represents the API response for /search
type searchResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		ArtistName    string `json:"artistName"`
		TrackName     string `json:"trackName"`
		ArtworkURL100 string `json:"artworkUrl100"`
		ArtworkURL60  string `json:"artworkUrl60"`
		PreviewURL    string `json:"previewUrl"`
	} `json:"results"`
}

// Lookup returns media for the first search hit, or nil when there is none.
// Concurrent lookups of the same track share one request.
func (c *Client) Lookup(ctx context.Context, artist, title string) (*enrich.Media, error) {
	term := strings.TrimSpace(strings.TrimSpace(artist) + " " + strings.TrimSpace(title))
	if term == "" {
		return nil, nil
	}
	// The shared search ignores any one caller's cancellation; each caller
	// stops waiting on its own ctx.
	ch := c.group.DoChan(strings.ToLower(term), func() (any, error) {
		return c.search(context.WithoutCancel(ctx), term)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		c.observe(OutcomeError)
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		c.observe(OutcomeError)
		return nil, res.Err
	}
	media, _ := res.Val.(*enrich.Media)
	if media == nil {
		c.observe(OutcomeNotFound)
		return nil, nil
	}
	c.observe(OutcomeFound)
	copied := *media
	return &copied, nil
}

func (c *Client) search(ctx context.Context, term string) (*enrich.Media, error) {
	q := url.Values{}
	q.Set("term", term)
	q.Set("media", "music")
	q.Set("entity", "song")
	q.Set("limit", fmt.Sprint(searchLimit))
	if c.country != "" {
		q.Set("country", c.country)
	}
	body, err := c.fetchWithRetry(ctx, c.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", term, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	for _, r := range resp.Results {
		artwork := r.ArtworkURL100
		if artwork == "" {
			artwork = r.ArtworkURL60
		}
		if artwork == "" && r.PreviewURL == "" {
			continue
		}
		c.logger.Debug("catalog match", "term", term, "artist", r.ArtistName, "track", r.TrackName)
		return &enrich.Media{Cover: UpscaleArtwork(artwork), PreviewURL: r.PreviewURL}, nil
	}
	return nil, nil
}

// UpscaleArtwork rewrites a thumbnail URL to the 600x600 rendition.
func UpscaleArtwork(u string) string {
	if u == "" {
		return ""
	}
	return artworkSize.ReplaceAllString(u, "/600x600bb.$1")
}

// fetchWithRetry performs an HTTP GET with exponential backoff retry on
// transport errors, 429 and 5xx.
func (c *Client) fetchWithRetry(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) observe(outcome string) {
	if c.recorder != nil {
		c.recorder.CatalogLookup(outcome)
	}
}
