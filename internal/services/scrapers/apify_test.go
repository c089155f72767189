package scrapers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/poller"
)

func fastPoller() *poller.Poller {
	return poller.New(arbor.NewLogger(), poller.Options{
		PollInterval: 5 * time.Millisecond,
		MaxWait:      2 * time.Second,
	})
}

// apifyServer simulates an actor run that stays RUNNING for runningPolls
// status calls before reaching finalState.
func apifyServer(t *testing.T, runningPolls int32, finalState, message string) (*httptest.Server, *int32) {
	t.Helper()
	var polls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/acts/test~actor/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("token"))

		var input map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Contains(t, input, "urls")

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": "run1", "status": "READY", "defaultDatasetId": "ds1"},
		})
	})
	mux.HandleFunc("/actor-runs/run1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		n := atomic.AddInt32(&polls, 1)
		status := "RUNNING"
		if n > runningPolls {
			status = finalState
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": "run1", "status": status, "statusMessage": message, "defaultDatasetId": "ds1"},
		})
	})
	mux.HandleFunc("/datasets/ds1/items", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("clean"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`[
			{"adArchiveID":"111","pageID":"p1","pageName":"Acme","isActive":true,
			 "publisherPlatform":["FACEBOOK","INSTAGRAM"],"startDate":1700000000,
			 "snapshot":{"body":{"text":"Big summer sale"},"title":"Sale","cta_text":"Shop Now","display_format":"IMAGE","link_url":"https://acme.test"}},
			{"ad_archive_id":"222","snapshot":{"page_name":"Acme","body":{"text":"New arrivals"},"display_format":"VIDEO"}},
			{"pageName":"missing id"}
		]`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &polls
}

func newTestApify(baseURL, token string) *ApifyProvider {
	return NewApifyProvider(common.ApifyConfig{
		Enabled:  true,
		Token:    token,
		ActorID:  "test~actor",
		BaseURL:  baseURL,
		Timeout:  "5s",
		MaxItems: 100,
	}, fastPoller(), arbor.NewLogger())
}

func TestApifyProvider_StartPollFetch(t *testing.T) {
	server, polls := apifyServer(t, 3, "SUCCEEDED", "")
	provider := newTestApify(server.URL, "secret")

	ads, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme", Limit: 10, Region: "us"})
	require.NoError(t, err)

	assert.Equal(t, int32(4), atomic.LoadInt32(polls))
	require.Len(t, ads, 2)

	assert.Equal(t, "111", ads[0].ID)
	assert.Equal(t, "Acme", ads[0].PageName)
	assert.Equal(t, "Big summer sale", ads[0].AdText)
	assert.Equal(t, "Shop Now", ads[0].CTA)
	assert.Equal(t, "image", ads[0].MediaType)
	assert.Equal(t, []string{"facebook", "instagram"}, ads[0].Platforms)
	assert.Equal(t, "US", ads[0].Region)
	assert.Equal(t, ProviderApify, ads[0].Source)
	assert.True(t, ads[0].Active)
	assert.False(t, ads[0].StartDate.IsZero())

	assert.Equal(t, "222", ads[1].ID)
	assert.Equal(t, "Acme", ads[1].PageName)
	assert.Equal(t, "video", ads[1].MediaType)
}

func TestApifyProvider_LimitTruncates(t *testing.T) {
	server, _ := apifyServer(t, 0, "SUCCEEDED", "")
	provider := newTestApify(server.URL, "secret")

	ads, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, ads, 1)
}

func TestApifyProvider_FailedRunIsProviderError(t *testing.T) {
	server, _ := apifyServer(t, 1, "FAILED", "actor crashed")
	provider := newTestApify(server.URL, "secret")

	_, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme"})
	require.Error(t, err)

	var providerErr *models.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, ProviderApify, providerErr.Provider)

	var runErr *models.RunFailedError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, "actor crashed", runErr.Diagnostic)
}

func TestApifyProvider_MissingToken(t *testing.T) {
	provider := newTestApify("http://127.0.0.1:1", "")

	_, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestApifyProvider_StartRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"token-not-valid"}}`))
	}))
	defer server.Close()

	provider := newTestApify(server.URL, "secret")
	_, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestApifyProvider_TransportErrorsOmitToken(t *testing.T) {
	const token = "SECRET-TOKEN-123"

	provider := newTestApify("http://127.0.0.1:1", token)
	_, err := provider.Attempt(context.Background(), models.SearchParams{Query: "acme"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)

	mux := http.NewServeMux()
	mux.HandleFunc("/acts/test~actor/runs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": "run1", "status": "READY", "defaultDatasetId": "ds1"},
		})
	})
	mux.HandleFunc("/actor-runs/run1", func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	provider = newTestApify(server.URL, token)
	_, err = provider.Attempt(context.Background(), models.SearchParams{Query: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/actor-runs/run1")
	assert.NotContains(t, err.Error(), token)
}
