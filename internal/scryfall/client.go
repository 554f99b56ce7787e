package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.scryfall.com"
	rateLimitDelay = 100 * time.Millisecond // 100ms between requests (10 req/sec)
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second
)

// Client represents a Scryfall API client with rate limiting.
// Retry and backoff live here; callers see a single error per operation.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRateLimit overrides the minimum delay between requests.
func WithRateLimit(delay time.Duration) Option {
	return func(c *Client) { c.rateLimiter = rate.NewLimiter(rate.Every(delay), 1) }
}

// NewClient creates a new Scryfall API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		// Rate limiter: 1 request per 100ms = 10 req/sec
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitDelay), 1),
		userAgent:   "magic-app/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCard retrieves a card by its Scryfall ID.
func (c *Client) GetCard(ctx context.Context, id string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/%s", c.baseURL, url.PathEscape(id))

	var card Card
	if err := c.doRequest(ctx, u, &card); err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}

	return &card, nil
}

// GetCardNamed retrieves a card by name. With exact=true the name must match
// exactly; otherwise the API applies fuzzy matching.
func (c *Client) GetCardNamed(ctx context.Context, name string, exact bool) (*Card, error) {
	q := url.Values{}
	if exact {
		q.Set("exact", name)
	} else {
		q.Set("fuzzy", name)
	}
	u := fmt.Sprintf("%s/cards/named?%s", c.baseURL, q.Encode())

	var card Card
	if err := c.doRequest(ctx, u, &card); err != nil {
		return nil, fmt.Errorf("failed to get card named %q: %w", name, err)
	}

	return &card, nil
}

// SearchCards performs a full-text search and returns one page of results.
// The returned list carries HasMore/NextPage for continuation.
func (c *Client) SearchCards(ctx context.Context, query string) (*List[Card], error) {
	q := url.Values{}
	q.Set("q", query)
	u := fmt.Sprintf("%s/cards/search?%s", c.baseURL, q.Encode())

	var result List[Card]
	if err := c.doRequest(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("failed to search cards with query %q: %w", query, err)
	}

	return &result, nil
}

// RandomCard retrieves a random card, optionally constrained by a search query.
func (c *Client) RandomCard(ctx context.Context, query string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/random", c.baseURL)
	if query != "" {
		q := url.Values{}
		q.Set("q", query)
		u += "?" + q.Encode()
	}

	var card Card
	if err := c.doRequest(ctx, u, &card); err != nil {
		return nil, fmt.Errorf("failed to get random card: %w", err)
	}

	return &card, nil
}

// GetRulings retrieves the rulings for a card by its Scryfall ID.
func (c *Client) GetRulings(ctx context.Context, id string) ([]Ruling, error) {
	u := fmt.Sprintf("%s/cards/%s/rulings", c.baseURL, url.PathEscape(id))

	var result List[Ruling]
	if err := c.doRequest(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("failed to get rulings for card %s: %w", id, err)
	}

	return result.Data, nil
}

// doRequest performs an HTTP request with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, u string, result any) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)

			// Retry on network errors
			if attempt < maxRetries {
				time.Sleep(backoff)
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to read response body: %w", err)
			}

			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("failed to parse JSON response: %w", err)
			}

			return nil

		case http.StatusTooManyRequests:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("rate limited (HTTP 429)")

			if attempt < maxRetries {
				// Honour Retry-After when the server provides it as a
				// delay in seconds; HTTP-date values fall back to the
				// exponential backoff.
				if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds >= 0 {
					time.Sleep(time.Duration(seconds) * time.Second)
				} else {
					time.Sleep(backoff)
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr

		case http.StatusNotFound:
			_ = resp.Body.Close()
			return &NotFoundError{URL: u}

		default:
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()

			var apiErr APIError
			if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details != "" {
				return &apiErr
			}

			return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
