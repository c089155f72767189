package scrapers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
)

func newTestGraphAPI(baseURL, token string) *GraphAPIProvider {
	return NewGraphAPIProvider(common.GraphAPIConfig{
		Enabled:     true,
		AccessToken: token,
		BaseURL:     baseURL,
		Version:     "v19.0",
		RateLimit:   "1ms",
		MaxPages:    3,
	}, arbor.NewLogger())
}

func TestGraphAPIProvider_FollowsPaging(t *testing.T) {
	var requests int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
		n := atomic.AddInt32(&requests, 1)

		if n == 1 {
			assert.Equal(t, "/v19.0/ads_archive", r.URL.Path)
			assert.Equal(t, "acme", r.URL.Query().Get("search_terms"))
			assert.Equal(t, `["GB"]`, r.URL.Query().Get("ad_reached_countries"))
			fmt.Fprintf(w, `{"data":[{"id":"1","page_name":"Acme","ad_creative_bodies":["First"],"ad_delivery_start_time":"2024-03-01","publisher_platforms":["FACEBOOK"]}],
				"paging":{"next":"%s/v19.0/ads_archive?after=abc"}}`, server.URL)
			return
		}
		assert.Equal(t, "abc", r.URL.Query().Get("after"))
		fmt.Fprint(w, `{"data":[{"id":"2","page_name":"Acme","ad_creative_bodies":["Second"],"ad_delivery_stop_time":"2024-04-01"}]}`)
	}))
	defer server.Close()

	provider := newTestGraphAPI(server.URL, "token123")
	ads, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme", Region: "GB"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	require.Len(t, ads, 2)
	assert.Equal(t, "First", ads[0].AdText)
	assert.True(t, ads[0].Active)
	assert.Equal(t, 2024, ads[0].StartDate.Year())
	assert.Equal(t, []string{"facebook"}, ads[0].Platforms)
	assert.False(t, ads[1].Active)
	assert.Equal(t, ProviderGraphAPI, ads[1].Source)
	assert.Equal(t, "GB", ads[1].Region)
}

func TestGraphAPIProvider_StopsAtLimit(t *testing.T) {
	var requests int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		fmt.Fprintf(w, `{"data":[{"id":"1"},{"id":"2"}],"paging":{"next":"%s/v19.0/ads_archive?after=x"}}`, server.URL)
	}))
	defer server.Close()

	provider := newTestGraphAPI(server.URL, "token123")
	ads, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, ads, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestGraphAPIProvider_ErrorObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`)
	}))
	defer server.Close()

	provider := newTestGraphAPI(server.URL, "bad")
	_, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
	assert.Contains(t, err.Error(), ProviderGraphAPI)
}

func TestGraphAPIProvider_MissingToken(t *testing.T) {
	provider := newTestGraphAPI("http://127.0.0.1:1", "")
	_, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token")
}
