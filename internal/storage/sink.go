package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/model"
)

// Sink collects engine events, stamps them with the run id and a sequence
// number, and hands them to its storages on Flush.
type Sink struct {
	runID    string
	storages []Storage

	mu      sync.Mutex
	seq     uint64
	pending []model.Event
}

// NewSink continues numbering after seq.
func NewSink(runID string, seq uint64, storages ...Storage) *Sink {
	return &Sink{runID: runID, seq: seq, storages: storages}
}

// Emit implements amm.Emitter.
func (s *Sink) Emit(clock model.Clock, pool common.Address, name string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.pending = append(s.pending, model.Event{
		RunID:     s.runID,
		Seq:       s.seq,
		Slot:      clock.Slot,
		Timestamp: clock.UnixTimestamp,
		Pool:      pool.Hex(),
		EventName: name,
		Decoded:   data,
	})
}

// Seq returns the sequence number of the last emitted event.
func (s *Sink) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Flush writes pending events to every storage and returns how many were written.
func (s *Sink) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(events) == 0 {
		return 0, nil
	}
	for _, st := range s.storages {
		if err := st.PutEvents(ctx, events); err != nil {
			return 0, fmt.Errorf("store events: %w", err)
		}
	}
	return len(events), nil
}
