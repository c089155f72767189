// -----------------------------------------------------------------------
// WebSocket - streams job and workflow progress events to clients
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/interfaces"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is the envelope of every message sent to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// wsClient is one connection; filter limits it to a single job or workflow id
type wsClient struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	filter string
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type WebSocketHandler struct {
	logger           arbor.ILogger
	eventService     interfaces.EventService
	clients          map[*wsClient]bool
	mu               sync.RWMutex
	allowedEvents    map[string]bool // empty = allow all
	throttle         time.Duration
	limiters         map[string]*rate.Limiter // per job/workflow id, progress events only
	limiterMu        sync.Mutex
	subscriptions    []string
	serverInstanceID string
}

func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		eventService:     eventService,
		clients:          make(map[*wsClient]bool),
		allowedEvents:    make(map[string]bool),
		throttle:         500 * time.Millisecond,
		limiters:         make(map[string]*rate.Limiter),
		serverInstanceID: uuid.New().String(),
	}

	if config != nil {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
		// "0s" disables throttling
		if d, err := time.ParseDuration(config.ProgressThrottle); err == nil && d >= 0 {
			h.throttle = d
		}
	}

	if eventService != nil {
		h.SubscribeToEvents()
	}

	logger.Info().
		Str("server_instance_id", h.serverInstanceID).
		Dur("progress_throttle", h.throttle).
		Int("allowed_events", len(h.allowedEvents)).
		Msg("WebSocket handler initialized")

	return h
}

// SubscribeToEvents registers the handler for every lifecycle event
func (h *WebSocketHandler) SubscribeToEvents() {
	for _, eventType := range interfaces.AllEventTypes {
		id, err := h.eventService.Subscribe(eventType, h.handleEvent)
		if err != nil {
			h.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to subscribe to event")
			continue
		}
		h.subscriptions = append(h.subscriptions, id)
	}
}

// HandleWebSocket handles WebSocket connections
// GET /ws?id={job or workflow id}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &wsClient{conn: conn, filter: r.URL.Query().Get("id")}

	h.mu.Lock()
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Str("filter", client.filter).Msgf("WebSocket client connected (total: %d)", clientCount)

	if data, err := json.Marshal(WSMessage{
		Type:    "hello",
		Payload: map[string]string{"server_instance_id": h.serverInstanceID},
	}); err == nil {
		client.write(data)
	}

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	// Read until the client goes away; inbound messages are ignored
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes from the event bus and disconnects every client
func (h *WebSocketHandler) Close() {
	if h.eventService != nil {
		for _, id := range h.subscriptions {
			h.eventService.Unsubscribe(id)
		}
	}
	h.subscriptions = nil

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.mu.Lock()
		client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		client.mu.Unlock()
		client.conn.Close()
	}
}

func (h *WebSocketHandler) handleEvent(ctx context.Context, event interfaces.Event) error {
	if len(h.allowedEvents) > 0 && !h.allowedEvents[string(event.Type)] {
		return nil
	}

	payload, ok := event.Payload.(interfaces.ProgressPayload)
	if !ok {
		h.logger.Warn().Str("event", string(event.Type)).Msg("Invalid event payload type")
		return nil
	}

	switch event.Type {
	case interfaces.EventJobProgress, interfaces.EventWorkflowProgress:
		if !h.allow(payload.ID) {
			return nil
		}
	case interfaces.EventJobCompleted, interfaces.EventWorkflowCompleted:
		h.forget(payload.ID)
	}

	h.broadcast(WSMessage{Type: string(event.Type), Payload: payload}, payload.ID)
	return nil
}

// allow applies the per-id progress throttle
func (h *WebSocketHandler) allow(id string) bool {
	if h.throttle <= 0 {
		return true
	}
	h.limiterMu.Lock()
	defer h.limiterMu.Unlock()

	limiter, ok := h.limiters[id]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.throttle), 1)
		h.limiters[id] = limiter
	}
	return limiter.Allow()
}

func (h *WebSocketHandler) forget(id string) {
	h.limiterMu.Lock()
	delete(h.limiters, id)
	h.limiterMu.Unlock()
}

func (h *WebSocketHandler) broadcast(msg WSMessage, id string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		if client.filter == "" || client.filter == id {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if err := client.write(data); err != nil {
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
		}
	}
}
