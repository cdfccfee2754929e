package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	apperrors "volarb/internal/errors"
	"volarb/internal/infrastructure"
	"volarb/internal/volarb"
)

// Message types pushed to clients
const (
	TypeConnection    = "connection"
	TypeSweepProgress = "sweep:progress"
	TypeSweepComplete = "sweep:complete"
	TypeSweepFailed   = "sweep:error"
)

// Message is the envelope of every frame the hub sends
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// SweepComplete announces a finished sweep
type SweepComplete struct {
	RunID  string            `json:"run_id"`
	Pair   string            `json:"pair"`
	Levels int               `json:"levels"`
	Stats  volarb.SweepStats `json:"stats"`
}

// SweepFailure announces a sweep that ended with an error
type SweepFailure struct {
	RunID     string `json:"run_id"`
	Pair      string `json:"pair"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}

// Hub maintains the set of active clients and broadcasts sweep events to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *Metrics

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a Hub. A nil metrics value records nothing.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.Run()
}

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.totalConnections++
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))
	h.metrics.recordConnection(ctx)

	hello, err := encode(TypeConnection, map[string]interface{}{
		"status":    "connected",
		"client_id": client.id,
	}, client.traceID)
	if err != nil {
		return
	}
	select {
	case client.send <- hello:
	default:
		h.logger.WarnContext(ctx, "client buffer full, connection message dropped",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
	h.metrics.recordDisconnection(ctx, time.Since(client.connectedAt))
}

// fanOut sends message to every client, dropping those whose buffer is full
func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent, dropped := 0, 0
	for client := range h.clients {
		select {
		case client.send <- message:
			sent++
		default:
			dropped++
			close(client.send)
			delete(h.clients, client)
			h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	h.messagesSent += int64(sent)
	h.messagesDropped += int64(dropped)

	h.logger.Debug("broadcast",
		slog.Int("clients", sent),
		slog.Int("dropped", dropped),
		slog.Int("message_size", len(message)))
	h.metrics.recordBroadcast(context.Background(), sent, dropped)
}

// Register adds a client. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Broadcast queues a typed message for every connected client
func (h *Hub) Broadcast(ctx context.Context, messageType string, data interface{}) {
	payload, err := encode(messageType, data, infrastructure.GetTraceID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal websocket message",
			slog.String("type", messageType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.quit:
	case <-ctx.Done():
	}
}

// PublishProgress broadcasts one sweep progress report
func (h *Hub) PublishProgress(ctx context.Context, progress volarb.SweepProgress) {
	h.Broadcast(ctx, TypeSweepProgress, progress)
}

// PublishComplete broadcasts the end of a successful sweep
func (h *Hub) PublishComplete(ctx context.Context, runID, pair string, dist volarb.Distribution, stats volarb.SweepStats) {
	h.Broadcast(ctx, TypeSweepComplete, SweepComplete{
		RunID:  runID,
		Pair:   pair,
		Levels: len(dist),
		Stats:  stats,
	})
}

// PublishFailure broadcasts a failed sweep
func (h *Hub) PublishFailure(ctx context.Context, runID, pair string, err error) {
	h.Broadcast(ctx, TypeSweepFailed, SweepFailure{
		RunID:     runID,
		Pair:      pair,
		ErrorCode: string(apperrors.TypeOf(err)),
		Message:   err.Error(),
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters for health reporting
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
		"running":           h.running,
	}
}

// Stop ends the hub loop and disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func encode(messageType string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	})
}
