// Package server provides the HTTP server, routing and the dashboard
// websocket hub for AlphaHunter.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/minqi/alphahunter/internal/domain"
)

// writeWait bounds how long a broadcast waits on a single slow client.
const writeWait = 10 * time.Second

// Frame statuses understood by the dashboard.
const (
	statusScanning = "scanning"
	statusData     = "data"
	statusError    = "error"
)

// scanningFrame is pushed on quiet cycles: the scan ran but found nothing.
type scanningFrame struct {
	Status  string        `json:"status"`
	Data    []interface{} `json:"data"`
	Message string        `json:"message"`
}

// dataFrame carries a full results document.
type dataFrame struct {
	Status string            `json:"status"`
	Data   domain.ScanResult `json:"data"`
}

// errorFrame reports a failed cycle.
type errorFrame struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Hub fans scan-cycle frames out to every connected dashboard client.
//
// Connections are push-only: inbound messages are read and discarded so the
// client can still answer pings, but nothing a client sends changes server
// state. The most recent frame is kept and replayed to each new subscriber,
// so a dashboard that connects between cycles shows the last known state
// instead of a blank screen until the next tick.
type Hub struct {
	log zerolog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	last  []byte
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:   log.With().Str("component", "ws_hub").Logger(),
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and parks the connection until the client
// goes away or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	subscribers := len(h.conns)
	last := h.last
	if last != nil {
		writeCtx, cancel := context.WithTimeout(r.Context(), writeWait)
		if err := conn.Write(writeCtx, websocket.MessageText, last); err != nil {
			h.log.Debug().Err(err).Msg("Failed to replay last frame")
		}
		cancel()
	}
	h.mu.Unlock()

	h.log.Info().Int("subscribers", subscribers).Msg("Dashboard client connected")

	// CloseRead drains inbound messages and hands back a context that ends
	// with the connection.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()

	h.mu.Lock()
	delete(h.conns, conn)
	subscribers = len(h.conns)
	h.mu.Unlock()

	conn.Close(websocket.StatusNormalClosure, "")
	h.log.Info().Int("subscribers", subscribers).Msg("Dashboard client disconnected")
}

// PublishScanning tells the dashboard a cycle completed without findings.
func (h *Hub) PublishScanning(message string) {
	h.broadcast(scanningFrame{
		Status:  statusScanning,
		Data:    []interface{}{},
		Message: message,
	})
}

// PublishResult pushes a results document to every client.
func (h *Hub) PublishResult(result domain.ScanResult) {
	h.broadcast(dataFrame{
		Status: statusData,
		Data:   result,
	})
}

// PublishError reports a failed cycle to every client.
func (h *Hub) PublishError(message string) {
	h.broadcast(errorFrame{
		Status:  statusError,
		Message: message,
	})
}

// Subscribers reports how many dashboard clients are connected.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every client. Used on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.conns, conn)
	}
}

// broadcast serializes the frame once and writes it to every connection.
// Clients that cannot be written to are dropped; the next frame goes to the
// survivors.
func (h *Hub) broadcast(frame interface{}) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode websocket frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = payload

	for conn := range h.conns {
		writeCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := conn.Write(writeCtx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			h.log.Warn().Err(err).Msg("Dropping unreachable dashboard client")
			conn.Close(websocket.StatusNormalClosure, "write failed")
			delete(h.conns, conn)
		}
	}
}
