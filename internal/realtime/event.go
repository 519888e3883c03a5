// Package realtime subscribes to the remote store's change stream and
// turns its websocket frames into table change events. The transport
// gives no ordering or exactly-once guarantee; consumers reconcile
// idempotently per row id.
package realtime

import (
	"encoding/json"
	"strings"

	"github.com/SkySouL159/RMS/internal/store"
)

// Change-event kinds carried on the stream.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Event is one insert/update/delete notification for a table. New holds
// the full row after the change (absent on delete); Old carries at least
// the id of the previous version (populated on delete).
type Event struct {
	Type  string
	Table string
	New   store.Row
	Old   store.Row
}

// message is a phoenix-framed websocket message. Payloads are kept raw
// until the event type is known.
type message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     any             `json:"ref"`
}

// changePayload is the body of an INSERT/UPDATE/DELETE message. The
// hosted service names the fields record/old_record; new/old are
// accepted as well since older gateway versions used them.
type changePayload struct {
	Record    store.Row `json:"record"`
	OldRecord store.Row `json:"old_record"`
	New       store.Row `json:"new"`
	Old       store.Row `json:"old"`
}

// decodeEvent parses one raw websocket frame. ok is false for anything
// that is not a change event for a table topic (replies, heartbeats,
// presence and malformed frames).
func decodeEvent(data []byte) (Event, bool) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var m message
	if err := dec.Decode(&m); err != nil {
		return Event{}, false
	}
	switch m.Event {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return Event{}, false
	}

	pd := json.NewDecoder(strings.NewReader(string(m.Payload)))
	pd.UseNumber()
	var p changePayload
	if err := pd.Decode(&p); err != nil {
		return Event{}, false
	}

	ev := Event{Type: m.Event, Table: tableFromTopic(m.Topic), New: p.Record, Old: p.OldRecord}
	if ev.New == nil {
		ev.New = p.New
	}
	if ev.Old == nil {
		ev.Old = p.Old
	}
	return ev, true
}

// tableFromTopic extracts the table name from a topic such as
// "realtime:public:lightbill".
func tableFromTopic(topic string) string {
	if i := strings.LastIndex(topic, ":"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
