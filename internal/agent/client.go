package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/works/internal/openalex"
	"github.com/matsen/works/internal/work"
)

// DefaultTimeout matches the upper bound of a sync run behind POST /update.
const DefaultTimeout = 200 * time.Second

var (
	// ErrUnauthorized is returned when the API rejects the update token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
)

// APIError is a non-2xx response from the works API.
type APIError struct {
	StatusCode int
	Category   string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("works API returned %d (%s): %s", e.StatusCode, e.Category, e.Detail)
	}
	return fmt.Sprintf("works API returned %d: %s", e.StatusCode, e.Detail)
}

// Listing is a page of records with its total.
type Listing struct {
	Results []work.Work `json:"results"`
	Total   int         `json:"total"`
}

// UpdateResult is the outcome of a triggered sync.
type UpdateResult struct {
	Status   string `json:"status"`
	RunID    string `json:"run_id"`
	Fetched  int    `json:"fetched"`
	Affected int64  `json:"affected"`
}

// API is the works HTTP API as seen by the agent.
type API interface {
	ListAll(ctx context.Context) (*Listing, error)
	Get(ctx context.Context, id string) (*work.Work, error)
	Search(ctx context.Context, f work.Filter) (*Listing, error)
	Update(ctx context.Context) (*UpdateResult, error)
}

// APIClient talks to the works HTTP API.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a client for the API at baseURL. token is sent as
// X-API-Key on update requests.
func NewAPIClient(baseURL, token string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

func (c *APIClient) ListAll(ctx context.Context) (*Listing, error) {
	var out Listing
	if err := c.do(ctx, http.MethodGet, "/records", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns ErrNotFound when the record does not exist. Full OpenAlex
// URIs are reduced to their ID.
func (c *APIClient) Get(ctx context.Context, id string) (*work.Work, error) {
	if strings.HasPrefix(id, "http") {
		id = openalex.ExtractID(id)
	}
	var out work.Work
	if err := c.do(ctx, http.MethodGet, "/records/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Search(ctx context.Context, f work.Filter) (*Listing, error) {
	q := url.Values{}
	if f.Keyword != "" {
		q.Set("keyword", f.Keyword)
	}
	if f.Year != nil {
		q.Set("year", strconv.Itoa(*f.Year))
	}
	if f.Language != "" {
		q.Set("language", f.Language)
	}
	var out Listing
	if err := c.do(ctx, http.MethodGet, "/filter", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update triggers a sync run and waits for it to finish.
func (c *APIClient) Update(ctx context.Context) (*UpdateResult, error) {
	var out UpdateResult
	if err := c.do(ctx, http.MethodPost, "/update", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("X-API-Key", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling works API: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding works API response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}

	var payload struct {
		Category string `json:"category"`
		Detail   string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		apiErr.Category = payload.Category
		apiErr.Detail = payload.Detail
	}
	return apiErr
}
