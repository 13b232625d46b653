package readwise

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/highlights"
)

const (
	DefaultBaseURL       = "https://readwise.io/api/v2"
	DefaultUserAgent     = "readwise-scripts"
	defaultTimeout       = 30 * time.Second
	defaultMaxRetries    = 5
	defaultRetryDelay    = 1 * time.Second
	defaultMaxRetryDelay = 30 * time.Second
	retryBackoffFactor   = 2
)

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	BaseURL       string
	Token         string
	UserAgent     string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Verbose       bool
}

type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	userAgent     string
	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	verbose       bool
}

func NewClient(opts Options) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: opts.Timeout},
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		token:         opts.Token,
		userAgent:     opts.UserAgent,
		maxRetries:    opts.MaxRetries,
		retryDelay:    opts.RetryDelay,
		maxRetryDelay: opts.MaxRetryDelay,
		verbose:       opts.Verbose,
	}
	if c.httpClient.Timeout <= 0 {
		c.httpClient.Timeout = defaultTimeout
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}
	if c.maxRetryDelay <= 0 {
		c.maxRetryDelay = defaultMaxRetryDelay
	}
	return c
}

// CreatedBook is one entry of the highlight creation response. Readwise
// groups the created or updated highlight ids by book.
type CreatedBook struct {
	ID                 int    `json:"id"`
	Title              string `json:"title"`
	Author             string `json:"author"`
	Category           string `json:"category"`
	Source             string `json:"source"`
	NumHighlights      int    `json:"num_highlights"`
	ModifiedHighlights []int  `json:"modified_highlights"`
}

type createHighlightsRequest struct {
	Highlights []entities.Highlight `json:"highlights"`
}

type addTagRequest struct {
	Name string `json:"name"`
}

// ValidateToken checks if the configured token is valid.
func (c *Client) ValidateToken(ctx context.Context) error {
	return c.withRetry(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, "/auth/", nil, nil)
	})
}

// CreateHighlights posts the records in one request.
func (c *Client) CreateHighlights(ctx context.Context, records []entities.Highlight) ([]CreatedBook, error) {
	var books []CreatedBook
	err := c.withRetry(ctx, func() error {
		books = nil
		return c.doJSON(ctx, http.MethodPost, "/highlights/", createHighlightsRequest{Highlights: records}, &books)
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// AddTag attaches a tag to an existing highlight.
func (c *Client) AddTag(ctx context.Context, highlightID int, name string) error {
	path := fmt.Sprintf("/highlights/%d/tags/", highlightID)
	return c.withRetry(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, path, addTagRequest{Name: name}, nil)
	})
}

// Upload creates the highlights, then tags them with the dot tags from
// their notes. Tagging needs the response ids to line up with the records,
// which Readwise only guarantees for a single book whose modified highlight
// count matches what was sent. Otherwise tags are skipped.
func (c *Client) Upload(ctx context.Context, records []entities.Highlight) error {
	if len(records) == 0 {
		return nil
	}

	books, err := c.CreateHighlights(ctx, records)
	if err != nil {
		return fmt.Errorf("failed to create highlights: %w", err)
	}
	log.Printf("Uploaded %d highlights", len(records))

	if len(books) != 1 || len(books[0].ModifiedHighlights) != len(records) {
		if c.verbose {
			log.Printf("Skipping tags: response has %d books", len(books))
		}
		return nil
	}

	tagged := 0
	for i, id := range books[0].ModifiedHighlights {
		for _, name := range highlights.TagNames(records[i]) {
			if err := c.AddTag(ctx, id, name); err != nil {
				return fmt.Errorf("failed to tag highlight %d with %q: %w", id, name, err)
			}
			tagged++
		}
	}
	if tagged > 0 {
		log.Printf("Added %d tags", tagged)
	}
	return nil
}

// Export uploads the records, satisfying importers.Exporter.
func (c *Client) Export(ctx context.Context, records []entities.Highlight) error {
	return c.Upload(ctx, records)
}

// withRetry runs fn until it succeeds, fails with a non-retryable error or
// the attempts run out.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateRetryDelay(attempt - 1)
			var rl *RateLimitError
			if errors.As(lastErr, &rl) && rl.RetryAfter > 0 {
				delay = min(rl.RetryAfter, c.maxRetryDelay)
			}
			if c.verbose {
				log.Printf("Retrying in %v (attempt %d/%d): %v", delay, attempt+1, c.maxRetries, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return err
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrInvalidToken
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (c *Client) calculateRetryDelay(attempt int) time.Duration {
	delay := c.retryDelay
	for i := 0; i < attempt; i++ {
		delay *= retryBackoffFactor
		if delay > c.maxRetryDelay {
			return c.maxRetryDelay
		}
	}
	return delay
}

func isRetryableError(err error) bool {
	var rateLimited *RateLimitError
	if errors.As(err, &rateLimited) {
		return true
	}
	var serverErr *ServerError
	return errors.As(err, &serverErr)
}
