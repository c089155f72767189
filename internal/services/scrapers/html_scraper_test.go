package scrapers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
)

func TestHTTPProvider_ExtractsCards(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "adscope-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "acme", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(cardFixture))
	}))
	defer server.Close()

	provider := NewHTTPProvider(common.HTTPScraperConfig{
		Enabled:   true,
		BaseURL:   server.URL + "/ads/library/",
		UserAgent: "adscope-test",
		Timeout:   "5s",
	}, arbor.NewLogger())

	ads, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme", Limit: 1, Region: "US"})
	require.NoError(t, err)
	require.Len(t, ads, 1)
	assert.Equal(t, "1001", ads[0].ID)
	assert.Equal(t, ProviderHTTP, ads[0].Source)
	assert.Equal(t, "US", ads[0].Region)
}

func TestHTTPProvider_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewHTTPProvider(common.HTTPScraperConfig{BaseURL: server.URL}, arbor.NewLogger())
	_, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestBrowserProvider_UsesRenderer(t *testing.T) {
	provider := NewBrowserProvider(common.BrowserConfig{Enabled: true, Headless: true}, arbor.NewLogger())

	var rendered string
	provider.render = func(ctx context.Context, url string) (string, error) {
		rendered = url
		return cardFixture, nil
	}

	ads, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme"})
	require.NoError(t, err)
	assert.Len(t, ads, 2)
	assert.Contains(t, rendered, "q=acme")
	assert.Equal(t, ProviderBrowser, ads[0].Source)
}

func TestBrowserProvider_RenderErrorIsProviderError(t *testing.T) {
	provider := NewBrowserProvider(common.BrowserConfig{Enabled: true}, arbor.NewLogger())
	provider.render = func(ctx context.Context, url string) (string, error) {
		return "", context.DeadlineExceeded
	}

	_, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ProviderBrowser)
}
