package simulate

import (
	"fmt"

	"ammEngine/internal/model"
)

// SlotBatch is the records of one slot, applied together.
type SlotBatch struct {
	Clock   model.Clock
	Records []model.OperationRecord
}

// GroupBySlot splits records into per-slot batches. Slots must not decrease
// and every record of a slot must carry the same timestamp.
func GroupBySlot(records []model.OperationRecord) ([]SlotBatch, error) {
	batches := make([]SlotBatch, 0)
	for i, rec := range records {
		n := len(batches)
		if n > 0 && batches[n-1].Clock.Slot == rec.Slot {
			if batches[n-1].Clock.UnixTimestamp != rec.Timestamp {
				return nil, fmt.Errorf("record %d: slot %d timestamp %d differs from %d", i, rec.Slot, rec.Timestamp, batches[n-1].Clock.UnixTimestamp)
			}
			batches[n-1].Records = append(batches[n-1].Records, rec)
			continue
		}
		if n > 0 {
			prev := batches[n-1].Clock
			if rec.Slot < prev.Slot {
				return nil, fmt.Errorf("record %d: slot %d after slot %d", i, rec.Slot, prev.Slot)
			}
			if rec.Timestamp < prev.UnixTimestamp {
				return nil, fmt.Errorf("record %d: timestamp %d before %d", i, rec.Timestamp, prev.UnixTimestamp)
			}
		}
		batches = append(batches, SlotBatch{
			Clock:   model.Clock{Slot: rec.Slot, UnixTimestamp: rec.Timestamp},
			Records: []model.OperationRecord{rec},
		})
	}
	return batches, nil
}
