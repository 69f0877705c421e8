package model

import "encoding/json"

// OperationRecord is one caller instruction in a scenario file. Records that
// share a slot form one atomic batch.
type OperationRecord struct {
	Slot      uint64          `json:"slot"`
	Timestamp int64           `json:"timestamp"`
	Op        string          `json:"op"`
	Signer    string          `json:"signer"`
	Params    json.RawMessage `json:"params"`
}

// OperationError records a batch that was rejected.
type OperationError struct {
	Slot      uint64 `json:"slot"`
	Timestamp int64  `json:"timestamp"`
	Index     int    `json:"index"`
	Op        string `json:"op"`
	Signer    string `json:"signer"`
	Code      string `json:"code,omitempty"`
	Category  string `json:"category,omitempty"`
	Error     string `json:"error"`
}
