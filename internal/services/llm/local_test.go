package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
)

func TestLocalCompleter_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req localChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "json_object", req.ResponseFormat["type"])
		assert.Equal(t, 512, req.MaxTokens)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"summary\":\"local says hi\",\"insights\":[],\"recommendations\":[]}"}}]}`))
	}))
	defer server.Close()

	completer, err := NewLocalCompleter(&common.LocalLLMConfig{
		Enabled:   true,
		URL:       server.URL,
		MaxTokens: 512,
		Timeout:   "5s",
	}, arbor.NewLogger())
	require.NoError(t, err)

	provider := NewAnalysisProvider(completer)
	data, err := provider.Attempt(context.Background(), models.AnalysisInput{})
	require.NoError(t, err)
	assert.Equal(t, "local says hi", data.Summary)
	assert.Equal(t, ProviderLocal, provider.Name())
}

func TestLocalCompleter_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("model loading"))
	}))
	defer server.Close()

	completer, err := NewLocalCompleter(&common.LocalLLMConfig{URL: server.URL}, arbor.NewLogger())
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), &CompletionRequest{
		Messages: []models.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestNewLocalCompleter_RejectsRemoteHost(t *testing.T) {
	_, err := NewLocalCompleter(&common.LocalLLMConfig{URL: "http://llm.example.com:8086"}, arbor.NewLogger())
	require.Error(t, err)

	for _, host := range []string{"localhost:8086", "127.0.0.1:8086", "[::1]:8086"} {
		assert.True(t, isLoopback(host), host)
	}
	assert.False(t, isLoopback("10.0.0.5:8086"))
}
