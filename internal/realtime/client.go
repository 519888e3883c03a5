package realtime

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const heartbeatInterval = 25 * time.Second

// Subscriber maintains one realtime subscription for one table and
// feeds decoded change events into the apply callback. It reconnects
// with exponential backoff for as long as its context lives; cancelling
// the context is the unconditional teardown.
type Subscriber struct {
	socketURL string
	table     string
	apply     func(Event)
}

// NewSubscriber builds a subscriber against the given project URL and
// anon key. apply is invoked from the read loop for every change event
// on the table; it must be safe to call from another goroutine.
func NewSubscriber(baseURL, apiKey, table string, apply func(Event)) *Subscriber {
	return &Subscriber{
		socketURL: socketURL(baseURL, apiKey),
		table:     table,
		apply:     apply,
	}
}

// socketURL derives the websocket endpoint from the project's REST URL.
func socketURL(baseURL, apiKey string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	return u + "/realtime/v1/websocket?" + q.Encode()
}

// topic returns the channel name for the subscribed table.
func (s *Subscriber) topic() string {
	return "realtime:public:" + s.table
}

// Run connects and consumes events until ctx is cancelled. Connection
// loss is retried with backoff starting at one second, capped at thirty;
// the backoff resets after a successful session.
func (s *Subscriber) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("realtime[%s]: session ended: %v; reconnecting in %s", s.table, err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// session dials the socket, joins the table channel and reads events
// until the connection drops or the context is cancelled.
func (s *Subscriber) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.socketURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	join := map[string]any{
		"topic":   s.topic(),
		"event":   "phx_join",
		"payload": map[string]any{},
		"ref":     "1",
	}
	if err := conn.WriteJSON(join); err != nil {
		return fmt.Errorf("join %s: %w", s.topic(), err)
	}
	log.Printf("realtime[%s]: subscribed", s.table)

	// Close the socket when the context dies so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	// Heartbeats keep the channel open; the gateway drops silent clients.
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		ref := 2
		for {
			select {
			case <-ticker.C:
				hb := map[string]any{
					"topic":   "phoenix",
					"event":   "heartbeat",
					"payload": map[string]any{},
					"ref":     fmt.Sprint(ref),
				}
				ref++
				if err := conn.WriteJSON(hb); err != nil {
					return
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		ev, ok := decodeEvent(data)
		if !ok || ev.Table != s.table {
			continue
		}
		s.apply(ev)
	}
}
