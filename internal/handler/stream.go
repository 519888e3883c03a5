package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/SkySouL159/RMS/internal/grid"
)

// SSEBroker fans grid change events out to connected browsers so every
// open page reconciles the way the realtime subscriber does. Slow
// clients are skipped rather than blocking the reconciliation path.
type SSEBroker struct {
	mu      sync.Mutex
	clients map[string]map[chan []byte]struct{} // grid key -> subscribers
}

// NewSSEBroker constructs a broker.
func NewSSEBroker() *SSEBroker {
	return &SSEBroker{clients: make(map[string]map[chan []byte]struct{})}
}

// Notify publishes one applied change to every subscriber of its grid.
// It is wired as the controllers' OnChange observer.
func (b *SSEBroker) Notify(ch grid.Change) {
	payload, err := json.Marshal(ch)
	if err != nil {
		return
	}
	b.mu.Lock()
	subs := make([]chan []byte, 0, len(b.clients[ch.Grid]))
	for c := range b.clients[ch.Grid] {
		subs = append(subs, c)
	}
	b.mu.Unlock()
	for _, c := range subs {
		select {
		case c <- payload:
		default:
		}
	}
}

// Subscribe registers a new client channel for one grid.
func (b *SSEBroker) Subscribe(gridName string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.clients[gridName] == nil {
		b.clients[gridName] = make(map[chan []byte]struct{})
	}
	b.clients[gridName][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client channel. The channel is left open: a
// Notify that snapshotted the subscriber list concurrently may still
// attempt a non-blocking send, and the channel is collected once the
// handler returns.
func (b *SSEBroker) Unsubscribe(gridName string, ch chan []byte) {
	b.mu.Lock()
	delete(b.clients[gridName], ch)
	b.mu.Unlock()
}

// StreamHandler serves the per-grid SSE change stream.
type StreamHandler struct {
	broker *SSEBroker
	grids  map[string]bool
}

// NewStreamHandler constructs a stream handler for the known grid keys.
func NewStreamHandler(broker *SSEBroker, gridNames ...string) *StreamHandler {
	known := make(map[string]bool, len(gridNames))
	for _, g := range gridNames {
		known[g] = true
	}
	return &StreamHandler{broker: broker, grids: known}
}

// Stream handles GET /v1/grids/:grid/stream. The connection stays open
// until the client goes away; each applied change is sent as one
// "change" event with the JSON payload of grid.Change.
func (h *StreamHandler) Stream(c echo.Context) error {
	gridName := c.Param("grid")
	if !h.grids[gridName] {
		return echo.NewHTTPError(http.StatusNotFound, "unknown grid")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	ch := h.broker.Subscribe(gridName)
	defer h.broker.Unsubscribe(gridName, ch)

	if _, err := res.Write([]byte("event: ready\ndata: {}\n\n")); err != nil {
		return nil
	}
	res.Flush()

	done := c.Request().Context().Done()
	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := res.Write([]byte("event: change\ndata: ")); err != nil {
				return nil
			}
			if _, err := res.Write(payload); err != nil {
				return nil
			}
			if _, err := res.Write([]byte("\n\n")); err != nil {
				return nil
			}
			res.Flush()
		case <-done:
			return nil
		}
	}
}
