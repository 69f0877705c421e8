package model

import "encoding/json"

// Event is an engine event enriched with run metadata.
type Event struct {
	RunID     string      `json:"run_id"`
	Seq       uint64      `json:"seq"`
	Slot      uint64      `json:"slot"`
	Timestamp int64       `json:"timestamp"`
	Pool      string      `json:"pool"`
	EventName string      `json:"event_name"`
	Decoded   interface{} `json:"decoded"`
}

// EventRecord is the JSON representation used for aggregation.
type EventRecord struct {
	RunID     string          `json:"run_id"`
	Seq       uint64          `json:"seq"`
	Slot      uint64          `json:"slot"`
	Timestamp int64           `json:"timestamp"`
	Pool      string          `json:"pool"`
	EventName string          `json:"event_name"`
	Decoded   json.RawMessage `json:"decoded"`
}
