package storage

import (
	"context"

	"ammEngine/internal/model"
)

// Storage defines a sink for engine events.
type Storage interface {
	PutEvents(ctx context.Context, events []model.Event) error
}

// SnapshotStorage persists pool snapshots.
type SnapshotStorage interface {
	PutSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error
}
