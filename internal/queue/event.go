// Package queue defines message payloads exchanged over the message broker.
package queue

// RowChangedEvent is published whenever a grid controller applies a row
// mutation, whether it came from a confirmed local cell commit or from
// the remote store's realtime stream. It carries enough information for
// downstream consumers to log or audit the change without querying the
// remote store. Deliveries may repeat (a local commit is usually echoed
// again by the stream), so consumers must tolerate duplicates.
type RowChangedEvent struct {
	Grid      string `json:"grid"`       // grid key: lightbill | payment
	Table     string `json:"table"`      // remote table name
	EventType string `json:"event_type"` // INSERT | UPDATE | DELETE
	RowID     int64  `json:"row_id"`
	Row       any    `json:"row,omitempty"` // post-change row, absent on delete
	ChangedAt string `json:"changed_at"`    // RFC3339, set by the publisher
}
