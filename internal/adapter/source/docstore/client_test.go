package docstore

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/propflow/migrator/internal/config"
	"github.com/propflow/migrator/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c := NewClient(config.SourceConfig{
		BaseURL:        "https://source.test/v1",
		Collection:     "properties",
		PageSize:       2,
		RequestTimeout: 5 * time.Second,
		MaxRetries:     2,
	}, slog.Default())

	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	// Retries should not slow the test down.
	c.httpClient.Timeout = time.Second
	return c
}

const pageURL = "https://source.test/v1/collections/properties/records"

func TestFetchPage(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, pageURL,
		httpmock.NewStringResponder(200, `{
			"records": [
				{"id": "p-1", "title": "Villa"},
				{"id": "p-2", "title": "Apartment"}
			],
			"total": 7,
			"hasMore": true
		}`),
	)

	page, err := c.FetchPage(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if len(page.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(page.Records))
	}
	if got := page.Records[0].ExternalID(); got != "p-1" {
		t.Errorf("first record id = %q, want p-1", got)
	}
	if page.Total != 7 {
		t.Errorf("Total = %d, want 7", page.Total)
	}
	if !page.HasMore {
		t.Error("HasMore = false, want true")
	}
}

func TestFetchPageSendsAuthAndPaging(t *testing.T) {
	c := newTestClient(t)
	c.apiKey = "secret-key"

	httpmock.RegisterResponder(http.MethodGet, pageURL,
		func(req *http.Request) (*http.Response, error) {
			if got := req.Header.Get("Authorization"); got != "Bearer secret-key" {
				t.Errorf("Authorization = %q, want bearer token", got)
			}
			q := req.URL.Query()
			if q.Get("offset") != "40" || q.Get("limit") != "20" {
				t.Errorf("paging params = offset %s limit %s, want 40/20", q.Get("offset"), q.Get("limit"))
			}
			return httpmock.NewStringResponse(200, `{"records":[],"total":40,"hasMore":false}`), nil
		},
	)

	if _, err := c.FetchPage(context.Background(), 40, 20); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	c := newTestClient(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, pageURL,
		func(*http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(503, "unavailable"), nil
			}
			return httpmock.NewStringResponse(200, `{"records":[{"id":"p-9"}],"total":1,"hasMore":false}`), nil
		},
	)

	page, err := c.FetchPage(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("FetchPage() after retries error = %v", err)
	}
	if calls != 3 {
		t.Errorf("server called %d times, want 3", calls)
	}
	if len(page.Records) != 1 {
		t.Errorf("got %d records, want 1", len(page.Records))
	}
}

func TestFetchPageDoesNotRetryClientErrors(t *testing.T) {
	c := newTestClient(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, pageURL,
		func(*http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(401, "nope"), nil
		},
	)

	_, err := c.FetchPage(context.Background(), 0, 10)
	if err == nil {
		t.Fatal("FetchPage() should fail on 401")
	}
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Errorf("error should wrap ErrSourceUnavailable, got %v", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1 (no retry on 4xx)", calls)
	}
}

func TestFetchPageExhaustsRetries(t *testing.T) {
	c := newTestClient(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, pageURL,
		func(*http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(500, "boom"), nil
		},
	)

	_, err := c.FetchPage(context.Background(), 0, 10)
	if err == nil {
		t.Fatal("FetchPage() should fail after exhausting retries")
	}
	// MaxRetries = 2 means 1 initial attempt + 2 retries.
	if calls != 3 {
		t.Errorf("server called %d times, want 3", calls)
	}
}
