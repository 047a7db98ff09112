// Package docstore is the read adapter for the document-oriented source
// store. It speaks the store's paginated JSON API and hands decoded records
// to the extraction layer; it never writes anything.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/propflow/migrator/internal/config"
	"github.com/propflow/migrator/internal/domain"
)

// Page is one window of the source collection. Total is whatever the store
// reports and is treated as approximate; HasMore and the page length are
// the trustworthy signals.
type Page struct {
	Records []domain.SourceRecord
	Total   int
	HasMore bool
}

// Client fetches pages from the document store's read API.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	maxRetries int
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client from SourceConfig.
func NewClient(cfg config.SourceConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		log:        logger.With("adapter", "docstore"),
	}
}

// FetchPage retrieves one window of records at the given offset. Transient
// failures (network errors, 5xx) are retried with exponential backoff up to
// the configured limit; 4xx responses are not retried.
func (c *Client) FetchPage(ctx context.Context, offset, limit int) (*Page, error) {
	reqURL := fmt.Sprintf("%s/collections/%s/records?%s",
		c.baseURL, url.PathEscape(c.collection),
		url.Values{
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(limit)},
		}.Encode(),
	)

	c.log.DebugContext(ctx, "docstore request", slog.Int("offset", offset), slog.Int("limit", limit))

	var page *Page
	operation := func() error {
		p, err := c.fetchOnce(ctx, reqURL)
		if err != nil {
			return err
		}
		page = p
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialBackOff(), uint64(c.maxRetries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.log.WarnContext(ctx, "docstore retry",
			slog.Int("offset", offset),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	if err := backoff.RetryNotify(operation, bo, notify); err != nil {
		return nil, fmt.Errorf("docstore: fetch page at offset %d: %w: %w", offset, domain.ErrSourceUnavailable, err)
	}

	c.log.DebugContext(ctx, "docstore response",
		slog.Int("offset", offset),
		slog.Int("records", len(page.Records)),
		slog.Int("total", page.Total),
		slog.Bool("has_more", page.HasMore),
	)

	return page, nil
}

// fetchOnce performs a single request. Errors wrapped in backoff.Permanent
// stop the retry loop.
func (c *Client) fetchOnce(ctx context.Context, reqURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("server status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var raw apiPage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode json: %w", err))
	}

	page := &Page{
		Records: make([]domain.SourceRecord, len(raw.Records)),
		Total:   raw.Total,
		HasMore: raw.HasMore,
	}
	for i, fields := range raw.Records {
		page.Records[i] = domain.NewSourceRecord(fields)
	}

	return page, nil
}

func newExponentialBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	return bo
}
