// Package zotero provides a client for the Zotero web API (version 3).
package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Zotero web API base URL.
	BaseURL = "https://api.zotero.org"

	// APIVersion is the Zotero API version requested on every call.
	APIVersion = "3"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit is a conservative client-side request rate. Zotero does
	// not publish a fixed limit; it signals overload via Backoff headers.
	RateLimit = 5.0

	// DefaultPageLimit is the page size used by the everything wrapper.
	// 100 is the maximum the API allows per request.
	DefaultPageLimit = 100
)

// LibraryType selects between a personal and a group library.
type LibraryType string

// Valid library types.
const (
	UserLibrary  LibraryType = "user"
	GroupLibrary LibraryType = "group"
)

// Client is a rate-limited HTTP client for one Zotero library.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	log         *slog.Logger
	apiKey      string
	baseURL     string
	libraryID   int
	libraryType LibraryType
	pageLimit   int

	mu           sync.Mutex
	backoffUntil time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
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

// WithLogger sets the logger used for request-level debug output.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithPageLimit sets the page size used by list calls.
func WithPageLimit(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// NewClient creates a client for the given library.
func NewClient(libraryID int, libraryType LibraryType, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(RateLimit), 1),
		log:         slog.New(slog.DiscardHandler),
		baseURL:     BaseURL,
		libraryID:   libraryID,
		libraryType: libraryType,
		pageLimit:   DefaultPageLimit,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// prefix returns the library path prefix, e.g. /users/12345.
func (c *Client) prefix() string {
	return fmt.Sprintf("/%ss/%d", c.libraryType, c.libraryID)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Zotero-API-Version", APIVersion)
	req.Header.Set("User-Agent", "zpapi")
	if c.apiKey != "" {
		req.Header.Set("Zotero-API-Key", c.apiKey)
	}
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == 404:
		return ErrNotFound
	case resp.StatusCode == 429:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		// Zotero returns plain-text error bodies.
		msg := ""
		if len(body) > 0 && len(body) < 512 {
			msg = string(bytes.TrimSpace(body))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}

// backoffInterval reads the Backoff or Retry-After header, in seconds.
func backoffInterval(h http.Header) time.Duration {
	for _, key := range []string{"Backoff", "Retry-After"} {
		if v := h.Get(key); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return 0
}

// waitBackoff blocks until any server-advertised backoff interval has
// elapsed, or the context is canceled.
func (c *Client) waitBackoff(ctx context.Context) error {
	c.mu.Lock()
	until := c.backoffUntil
	c.mu.Unlock()

	delay := time.Until(until)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) noteBackoff(h http.Header) {
	interval := backoffInterval(h)
	if interval <= 0 {
		return
	}
	c.mu.Lock()
	if until := time.Now().Add(interval); until.After(c.backoffUntil) {
		c.backoffUntil = until
	}
	c.mu.Unlock()
}

// do executes one API request against the library, retrying once if the
// server answers 429 with a Retry-After interval.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, extra map[string]string) ([]byte, http.Header, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
		if err := c.waitBackoff(ctx); err != nil {
			return nil, nil, fmt.Errorf("backoff wait: %w", err)
		}

		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, nil, fmt.Errorf("creating request: %w", err)
		}
		c.setHeaders(req)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		for k, v := range extra {
			req.Header.Set(k, v)
		}

		c.log.Debug("zotero request", "method", method, "url", u, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, nil, fmt.Errorf("%w: reading body: %v", ErrNetwork, readErr)
		}

		c.noteBackoff(resp.Header)
		c.log.Debug("zotero response", "status", resp.StatusCode, "bytes", len(respBody))

		if resp.StatusCode == 429 && attempt == 0 {
			c.log.Info("rate limited, retrying after server interval")
			continue
		}

		if err := checkHTTPErrors(resp, respBody); err != nil {
			return nil, nil, err
		}
		return respBody, resp.Header, nil
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, http.Header, error) {
	return c.do(ctx, http.MethodGet, path, query, "", nil, nil)
}

// listAll fetches every page of a list endpoint under the library
// prefix, following start offsets until Total-Results is exhausted.
// This is the "everything" wrapper: no caller sees a partial page set.
func listAll[T any](ctx context.Context, c *Client, path string, params Params) ([]T, error) {
	var all []T
	start := 0
	total := -1

	for {
		query := params.Values()
		query.Set("format", "json")
		query.Set("limit", strconv.Itoa(c.pageLimit))
		if start > 0 {
			query.Set("start", strconv.Itoa(start))
		}

		body, header, err := c.get(ctx, c.prefix()+path, query)
		if err != nil {
			return nil, err
		}

		var page []T
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidResponse, path, err)
		}
		all = append(all, page...)

		if t := header.Get("Total-Results"); t != "" {
			if n, err := strconv.Atoi(t); err == nil {
				total = n
			}
		}

		start += len(page)
		if len(page) < c.pageLimit {
			break
		}
		if total >= 0 && start >= total {
			break
		}
	}

	return all, nil
}

// Items fetches all items in the library.
func (c *Client) Items(ctx context.Context, params Params) ([]Item, error) {
	return listAll[Item](ctx, c, "/items", params)
}

// TopItems fetches all top-level items.
func (c *Client) TopItems(ctx context.Context, params Params) ([]Item, error) {
	return listAll[Item](ctx, c, "/items/top", params)
}

// TrashItems fetches all items in the trash.
func (c *Client) TrashItems(ctx context.Context, params Params) ([]Item, error) {
	return listAll[Item](ctx, c, "/items/trash", params)
}

// PublicationItems fetches the items in My Publications. Only valid
// for user libraries; the API rejects it for groups.
func (c *Client) PublicationItems(ctx context.Context, params Params) ([]Item, error) {
	return listAll[Item](ctx, c, "/publications/items", params)
}

// Children fetches the child items of one item.
func (c *Client) Children(ctx context.Context, itemKey string, params Params) ([]Item, error) {
	return listAll[Item](ctx, c, "/items/"+url.PathEscape(itemKey)+"/children", params)
}

// Collections fetches all collections in the library.
func (c *Client) Collections(ctx context.Context, params Params) ([]Collection, error) {
	return listAll[Collection](ctx, c, "/collections", params)
}

// TopCollections fetches all top-level collections.
func (c *Client) TopCollections(ctx context.Context, params Params) ([]Collection, error) {
	return listAll[Collection](ctx, c, "/collections/top", params)
}

// CollectionItems fetches all items in one collection.
func (c *Client) CollectionItems(ctx context.Context, collectionKey string, params Params) ([]Item, error) {
	return listAll[Item](ctx, c, "/collections/"+url.PathEscape(collectionKey)+"/items", params)
}

// Tags fetches all tags in the library.
func (c *Client) Tags(ctx context.Context, params Params) ([]Tag, error) {
	return listAll[Tag](ctx, c, "/tags", params)
}

// ItemTags fetches the tags of one item.
func (c *Client) ItemTags(ctx context.Context, itemKey string, params Params) ([]Tag, error) {
	return listAll[Tag](ctx, c, "/items/"+url.PathEscape(itemKey)+"/tags", params)
}

// Searches fetches all saved searches in the library.
func (c *Client) Searches(ctx context.Context, params Params) ([]SavedSearch, error) {
	return listAll[SavedSearch](ctx, c, "/searches", params)
}

// Groups fetches the groups accessible to the API key.
func (c *Client) Groups(ctx context.Context, params Params) ([]Group, error) {
	return listAll[Group](ctx, c, "/groups", params)
}

// CreateSearches creates saved searches in the library.
func (c *Client) CreateSearches(ctx context.Context, defs []SearchDefinition) (*WriteResponse, error) {
	body, err := json.Marshal(defs)
	if err != nil {
		return nil, fmt.Errorf("encoding searches: %w", err)
	}

	respBody, _, err := c.do(ctx, http.MethodPost, c.prefix()+"/searches", nil, "application/json", body, nil)
	if err != nil {
		return nil, err
	}

	var wr WriteResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return nil, fmt.Errorf("%w: parsing write response: %v", ErrInvalidResponse, err)
	}
	return &wr, nil
}
