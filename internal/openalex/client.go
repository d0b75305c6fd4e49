package openalex

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
	// BaseURL is the OpenAlex works endpoint.
	BaseURL = "https://api.openalex.org/works"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit is the polite-pool limit of 10 requests per second.
	RateLimit = 10.0

	// MaxPerPage is the largest page size OpenAlex accepts.
	MaxPerPage = 200

	// DefaultPerPage and DefaultPage select the single batch a sync fetches.
	DefaultPerPage = 100
	DefaultPage    = 1

	// maxErrorBody bounds how much of a failed response is kept for reporting.
	maxErrorBody = 4096
)

// Client is a rate-limited HTTP client for the OpenAlex works endpoint.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMailto sets the contact address sent with every request, which
// places the client in the OpenAlex polite pool.
func WithMailto(mail string) ClientOption {
	return func(c *Client) {
		c.mailto = mail
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithRateLimit sets the maximum requests per second. Zero or less disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new OpenAlex client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		userAgent:  "works-sync",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchWorks fetches one page of works. A non-success status is reported
// as an *APIError carrying the status and body; nothing is retried.
func (c *Client) FetchWorks(ctx context.Context, page Page) ([]Work, error) {
	if page.PerPage < 1 || page.PerPage > MaxPerPage {
		return nil, fmt.Errorf("%w: per-page must be between 1 and %d, got %d", ErrInvalidPage, MaxPerPage, page.PerPage)
	}
	if page.Page < 1 {
		return nil, fmt.Errorf("%w: page must be positive, got %d", ErrInvalidPage, page.Page)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL, err := c.pageURL(page)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var listing WorksResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("%w: decoding works page: %v", ErrInvalidResponse, err)
	}

	if listing.Results == nil {
		return []Work{}, nil
	}
	return listing.Results, nil
}

// pageURL builds the request URL for a page, keeping any query already on the base URL.
func (c *Client) pageURL(page Page) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	q := u.Query()
	q.Set("per-page", strconv.Itoa(page.PerPage))
	q.Set("page", strconv.Itoa(page.Page))
	if c.mailto != "" {
		q.Set("mailto", c.mailto)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
