package realtime

import (
	"encoding/json"
	"testing"
)

func TestDecodeEventInsertWithRecordField(t *testing.T) {
	frame := []byte(`{
		"topic": "realtime:public:lightbill",
		"event": "INSERT",
		"payload": {"record": {"id": 3, "current_reading": 10.50}},
		"ref": null
	}`)
	ev, ok := decodeEvent(frame)
	if !ok {
		t.Fatal("expected a change event")
	}
	if ev.Type != EventInsert || ev.Table != "lightbill" {
		t.Errorf("event = %+v", ev)
	}
	// Number literals must survive for downstream no-op comparison.
	n, isNum := ev.New["current_reading"].(json.Number)
	if !isNum || n.String() != "10.50" {
		t.Errorf("current_reading = %v (%T), want json.Number 10.50", ev.New["current_reading"], ev.New["current_reading"])
	}
}

func TestDecodeEventDeleteWithOldRecord(t *testing.T) {
	frame := []byte(`{
		"topic": "realtime:public:payment",
		"event": "DELETE",
		"payload": {"old_record": {"id": 7}}
	}`)
	ev, ok := decodeEvent(frame)
	if !ok {
		t.Fatal("expected a change event")
	}
	if ev.Type != EventDelete || ev.Table != "payment" {
		t.Errorf("event = %+v", ev)
	}
	if id, hasID := ev.Old.ID(); !hasID || id != 7 {
		t.Errorf("old id = %d (%v)", id, hasID)
	}
}

func TestDecodeEventAcceptsLegacyNewOldFields(t *testing.T) {
	frame := []byte(`{
		"topic": "realtime:public:lightbill",
		"event": "UPDATE",
		"payload": {"new": {"id": 1, "month": "Feb"}, "old": {"id": 1}}
	}`)
	ev, ok := decodeEvent(frame)
	if !ok {
		t.Fatal("expected a change event")
	}
	if got := ev.New.String("month"); got != "Feb" {
		t.Errorf("new.month = %q", got)
	}
	if _, hasID := ev.Old.ID(); !hasID {
		t.Error("old record not carried over from legacy field")
	}
}

func TestDecodeEventIgnoresProtocolFrames(t *testing.T) {
	frames := [][]byte{
		[]byte(`{"topic":"realtime:public:lightbill","event":"phx_reply","payload":{"status":"ok"},"ref":"1"}`),
		[]byte(`{"topic":"phoenix","event":"heartbeat","payload":{},"ref":"2"}`),
		[]byte(`{"topic":"realtime:public:lightbill","event":"presence_state","payload":{}}`),
		[]byte(`not json at all`),
		[]byte(`{"topic":"realtime:public:lightbill","event":"INSERT","payload":"not an object"}`),
	}
	for _, f := range frames {
		if _, ok := decodeEvent(f); ok {
			t.Errorf("frame %s decoded as a change event", f)
		}
	}
}

func TestTableFromTopic(t *testing.T) {
	tests := []struct{ topic, want string }{
		{"realtime:public:lightbill", "lightbill"},
		{"realtime:public:payment", "payment"},
		{"bare", "bare"},
	}
	for _, tt := range tests {
		if got := tableFromTopic(tt.topic); got != tt.want {
			t.Errorf("tableFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestSocketURL(t *testing.T) {
	got := socketURL("https://proj.supabase.co/", "key-123")
	want := "wss://proj.supabase.co/realtime/v1/websocket?apikey=key-123&vsn=1.0.0"
	if got != want {
		t.Errorf("socketURL = %q, want %q", got, want)
	}

	got = socketURL("http://localhost:54321", "k")
	want = "ws://localhost:54321/realtime/v1/websocket?apikey=k&vsn=1.0.0"
	if got != want {
		t.Errorf("socketURL = %q, want %q", got, want)
	}
}
