package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
)

// LocalCompleter talks to a self-hosted OpenAI-compatible server
// (llama-server, ollama, vllm) on this machine.
type LocalCompleter struct {
	config *common.LocalLLMConfig
	client *http.Client
	logger arbor.ILogger
}

type localChatRequest struct {
	Model          string            `json:"model,omitempty"`
	Messages       []localMessage    `json:"messages"`
	Temperature    float32           `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Stream         bool              `json:"stream"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type localMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type localChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewLocalCompleter creates the completer. The URL must point at a loopback host.
func NewLocalCompleter(config *common.LocalLLMConfig, logger arbor.ILogger) (*LocalCompleter, error) {
	parsed, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid local llm url: %w", err)
	}
	if !isLoopback(parsed.Host) {
		return nil, fmt.Errorf("local llm url must be localhost, got %s", parsed.Host)
	}

	return &LocalCompleter{
		config: config,
		client: &http.Client{
			Timeout: common.ParseDuration(config.Timeout, 2*time.Minute),
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					if !isLoopback(addr) {
						return nil, fmt.Errorf("refusing non-localhost connection to %s", addr)
					}
					return (&net.Dialer{}).DialContext(ctx, network, addr)
				},
			},
		},
		logger: logger,
	}, nil
}

func (l *LocalCompleter) Name() string { return ProviderLocal }

func (l *LocalCompleter) Complete(ctx context.Context, request *CompletionRequest) (string, error) {
	messages := make([]localMessage, 0, len(request.Messages)+1)
	if request.System != "" {
		messages = append(messages, localMessage{Role: "system", Content: request.System})
	}
	for _, msg := range request.Messages {
		messages = append(messages, localMessage{Role: msg.Role, Content: msg.Content})
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = l.config.MaxTokens
	}
	temp := request.Temperature
	if temp <= 0 {
		temp = l.config.Temperature
	}

	body := localChatRequest{
		Model:       l.config.Model,
		Messages:    messages,
		Temperature: temp,
		MaxTokens:   maxTokens,
		Stream:      false,
	}
	if request.JSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(l.config.URL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("local llm request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("local llm returned status %d: %s", resp.StatusCode, string(respBody[:min(200, len(respBody))]))
	}

	var chatResponse localChatResponse
	if err := json.Unmarshal(respBody, &chatResponse); err != nil {
		return "", fmt.Errorf("failed to parse chat JSON: %w", err)
	}
	if len(chatResponse.Choices) == 0 {
		return "", nil
	}

	text := chatResponse.Choices[0].Message.Content
	l.logger.Debug().
		Int("response_length", len(text)).
		Msg("Local completion generated")
	return text, nil
}

func isLoopback(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
