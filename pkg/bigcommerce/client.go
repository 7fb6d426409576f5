// Package bigcommerce is a minimal client for the BigCommerce catalog
// API, covering the category endpoints used for cross-store migration.
package bigcommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

const defaultBaseURL = "https://api.bigcommerce.com"

// Config holds client settings. Zero values fall back to defaults.
type Config struct {
	// BaseURL overrides the API host, mainly for tests.
	BaseURL string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// PageSize is the page size for paginated category fetches.
	PageSize int

	// MaxAttempts is the total attempt count per request, including the
	// first try.
	MaxAttempts int

	// PageDelay is the pause between pages when fetching large trees.
	PageDelay time.Duration
}

func (cfg *Config) applyDefaults() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 250
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.PageDelay == 0 {
		cfg.PageDelay = 100 * time.Millisecond
	}
}

// Client talks to a single store's catalog API. All calls block until
// the response arrives or the retry budget is exhausted.
type Client struct {
	storeHash   string
	accessToken string
	cfg         Config
	httpClient  *http.Client
	logger      hclog.Logger
}

// NewClient creates a client for the store identified by storeHash.
func NewClient(storeHash, accessToken string, cfg Config, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	cfg.applyDefaults()

	return &Client{
		storeHash:   storeHash,
		accessToken: accessToken,
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger.Named("bigcommerce").With("store", storeHash),
	}
}

// APIError is a non-2xx response from the API, surfaced after the retry
// budget is spent.
type APIError struct {
	StatusCode int
	Title      string
}

func (e *APIError) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("api error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: HTTP %d - %s", e.StatusCode, e.Title)
}

// TestConnection verifies the credentials by fetching store info.
func (c *Client) TestConnection(ctx context.Context) (*StoreInfo, error) {
	return c.StoreInfo(ctx)
}

// StoreInfo fetches the store summary.
func (c *Client) StoreInfo(ctx context.Context) (*StoreInfo, error) {
	var info StoreInfo
	if err := c.do(ctx, http.MethodGet, "/v2/store", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CategoryTrees lists the store's category trees.
func (c *Client) CategoryTrees(ctx context.Context) ([]Tree, error) {
	var resp struct {
		Data []Tree `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v3/catalog/trees", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// AllCategories fetches every category in the store, paginating until a
// page comes back shorter than the page size.
func (c *Client) AllCategories(ctx context.Context) ([]Category, error) {
	return c.fetchPaged(ctx, "/v3/catalog/categories", nil)
}

// CategoriesByTree fetches every category in one tree via the
// tree-scoped endpoint.
func (c *Client) CategoriesByTree(ctx context.Context, treeID int) ([]Category, error) {
	query := url.Values{}
	query.Set("tree_id:in", strconv.Itoa(treeID))
	return c.fetchPaged(ctx, "/v3/catalog/trees/categories", query)
}

func (c *Client) fetchPaged(ctx context.Context, path string, base url.Values) ([]Category, error) {
	var all []Category
	for page := 1; ; page++ {
		query := url.Values{}
		for k, vs := range base {
			query[k] = vs
		}
		query.Set("limit", strconv.Itoa(c.cfg.PageSize))
		query.Set("page", strconv.Itoa(page))

		var resp struct {
			Data []Category `json:"data"`
		}
		if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			break
		}
		all = append(all, resp.Data...)
		if len(resp.Data) < c.cfg.PageSize {
			break
		}
		if err := sleepCtx(ctx, c.cfg.PageDelay); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("fetched categories", "path", path, "count", len(all))
	return all, nil
}

// CategoryByID fetches a single category. A 404 is returned as a nil
// category with no error, matching how callers treat a vanished source
// record as a per-item condition rather than a transport failure.
func (c *Client) CategoryByID(ctx context.Context, id int) (*Category, error) {
	var resp struct {
		Data Category `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v3/catalog/categories/%d", id), nil, nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &resp.Data, nil
}

// CreateCategory creates a category in the store's tree and returns its
// new id. The tree endpoint expects an array payload even for a single
// category.
func (c *Client) CreateCategory(ctx context.Context, payload *CreateCategoryPayload) (int, error) {
	var resp struct {
		Data []Category `json:"data"`
	}
	err := c.do(ctx, http.MethodPost, "/v3/catalog/trees/categories",
		nil, []*CreateCategoryPayload{payload}, &resp)
	if err != nil {
		return 0, err
	}
	if len(resp.Data) == 0 || resp.Data[0].ID == 0 {
		return 0, fmt.Errorf("create returned no category id")
	}
	return resp.Data[0].ID, nil
}

// UpdateCategory applies a partial update to a category.
func (c *Client) UpdateCategory(ctx context.Context, id int, fields map[string]any) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/v3/catalog/categories/%d", id), nil, fields, nil)
}

// DeleteCategory deletes a category, scoped to a tree when treeID > 0.
func (c *Client) DeleteCategory(ctx context.Context, id, treeID int) error {
	path := fmt.Sprintf("/v3/catalog/categories/%d", id)
	if treeID > 0 {
		path = fmt.Sprintf("/v3/catalog/trees/%d/categories/%d", treeID, id)
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do executes one API request with retries. Rate-limit responses honor
// the Retry-After header; other failures back off exponentially. The
// last error is surfaced once attempts run out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := fmt.Sprintf("%s/stores/%s%s", c.cfg.BaseURL, c.storeHash, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, bo.NextBackOff()); err != nil {
				return err
			}
		}

		retryAfter, err := c.attempt(ctx, method, endpoint, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if retryAfter > 0 {
			// 429: wait out the hint instead of the backoff schedule.
			c.logger.Warn("rate limited", "method", method, "path", path,
				"retry_after", retryAfter)
			if err := sleepCtx(ctx, retryAfter); err != nil {
				return err
			}
			bo.Reset()
			continue
		}

		c.logger.Warn("request failed", "method", method, "path", path,
			"attempt", attempt, "error", err)
	}

	return fmt.Errorf("%s %s failed after %d attempts: %w", method, path, c.cfg.MaxAttempts, lastErr)
}

// attempt performs a single HTTP round trip. A positive retryAfter
// signals a rate-limit response.
func (c *Client) attempt(ctx context.Context, method, endpoint string, payload []byte, out any) (retryAfter time.Duration, err error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter = 2 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, perr := strconv.Atoi(v); perr == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return retryAfter, &APIError{StatusCode: resp.StatusCode, Title: "rate limit exceeded"}
	}

	if resp.StatusCode == http.StatusNoContent {
		return 0, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Title string `json:"title"`
		}
		if json.Unmarshal(raw, &errBody) == nil && errBody.Title != "" {
			apiErr.Title = errBody.Title
		} else {
			apiErr.Title = string(raw)
		}
		return 0, apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return 0, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return 0, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
