package simulate

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ammEngine/internal/amm"
	"ammEngine/internal/ammerr"
	"ammEngine/internal/batch"
	"ammEngine/internal/custody"
	"ammEngine/internal/metrics"
	"ammEngine/internal/model"
	"ammEngine/internal/oracle"
	"ammEngine/internal/storage"
	"ammEngine/internal/store"
)

// RunConfig holds runtime settings for a scenario run.
type RunConfig struct {
	In                string
	ErrorsOut         string
	CheckpointPath    string
	CheckpointEnabled bool
}

// Deps are the outputs and price feed of a run.
type Deps struct {
	Feed      oracle.Feed
	Events    []storage.Storage
	Snapshots []storage.SnapshotStorage
	Metrics   *metrics.EngineMetrics
}

// Summary reports what a run did.
type Summary struct {
	RunID     string
	Batches   int
	Committed int
	Rejected  int
	Replayed  int
	Events    int
	LastSlot  uint64
}

// gate drops events while earlier batches are replayed.
type gate struct {
	target amm.Emitter
	muted  bool
}

func (g *gate) Emit(clock model.Clock, pool common.Address, name string, data interface{}) {
	if g.muted || g.target == nil {
		return
	}
	g.target.Emit(clock, pool, name, data)
}

// Runner replays a scenario file against a fresh engine, one atomic batch per
// slot.
type Runner struct {
	cfg        RunConfig
	deps       Deps
	store      *store.MemoryStore
	ledger     *custody.Ledger
	engine     *amm.Engine
	executor   *batch.Executor
	builder    *StepBuilder
	gate       *gate
	checkpoint *CheckpointStore
	logger     *zap.Logger
}

// NewRunner builds a Runner with an empty store and ledger. When deps.Feed is
// nil a static feed is used and set_price records populate it. When
// deps.Metrics is nil the process-wide recorder is used.
func NewRunner(cfg RunConfig, deps Deps, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	feed := deps.Feed
	if feed == nil {
		feed = oracle.NewStaticFeed()
	}
	prices, _ := feed.(PriceSetter)
	if deps.Metrics == nil {
		deps.Metrics = metrics.Engine()
	}

	st := store.NewMemoryStore()
	ledger := custody.NewLedger()
	engine := amm.New(st, ledger, feed, amm.WithLogger(logger), amm.WithMetrics(deps.Metrics))
	g := &gate{}

	return &Runner{
		cfg:        cfg,
		deps:       deps,
		store:      st,
		ledger:     ledger,
		engine:     engine,
		executor:   batch.NewExecutor(engine, g, deps.Metrics, logger, st, ledger),
		builder:    &StepBuilder{Engine: engine, Minter: ledger, Prices: prices},
		gate:       g,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		logger:     logger,
	}
}

// Run executes the scenario at cfg.In.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r.cfg.In == "" {
		return Summary{}, fmt.Errorf("input path is required")
	}
	records, err := ReadRecordsFile(r.cfg.In)
	if err != nil {
		return Summary{}, err
	}
	return r.RunRecords(ctx, records)
}

// RunRecords executes records. Batches at or before a checkpointed slot are
// replayed to rebuild state without writing events or errors again.
func (r *Runner) RunRecords(ctx context.Context, records []model.OperationRecord) (Summary, error) {
	batches, err := GroupBySlot(records)
	if err != nil {
		return Summary{}, err
	}

	cp, resumed, err := r.checkpoint.Load()
	if err != nil {
		return Summary{}, err
	}
	if !resumed || cp.RunID == "" {
		cp = Checkpoint{RunID: uuid.NewString()}
		resumed = false
	}
	sink := storage.NewSink(cp.RunID, cp.LastSeq, r.deps.Events...)
	r.gate.target = sink

	var errStore *storage.JsonlStorage
	if r.cfg.ErrorsOut != "" {
		errStore = storage.NewJsonlStorage(r.cfg.ErrorsOut)
	}

	summary := Summary{RunID: cp.RunID, LastSlot: cp.LastSlot}
	r.logger.Info("simulate start",
		zap.String("run_id", cp.RunID),
		zap.Int("records", len(records)),
		zap.Int("batches", len(batches)),
		zap.Bool("resumed", resumed),
		zap.Uint64("checkpoint_slot", cp.LastSlot),
	)

	for _, b := range batches {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		replay := resumed && b.Clock.Slot <= cp.LastSlot
		r.gate.muted = replay
		summary.Batches++
		if replay {
			summary.Replayed++
		}

		opErr := r.applyBatch(ctx, b)
		if opErr != nil && (errors.Is(opErr.cause, context.Canceled) || errors.Is(opErr.cause, context.DeadlineExceeded)) {
			return summary, opErr.cause
		}
		if replay {
			continue
		}

		if opErr != nil {
			summary.Rejected++
			r.logger.Info("batch rejected",
				zap.Uint64("slot", b.Clock.Slot),
				zap.Int("index", opErr.record.Index),
				zap.String("op", opErr.record.Op),
				zap.String("code", opErr.record.Code),
				zap.String("error", opErr.record.Error),
			)
			if errStore != nil {
				if err := errStore.PutErrors([]model.OperationError{opErr.record}); err != nil {
					return summary, fmt.Errorf("store errors: %w", err)
				}
			}
		} else {
			summary.Committed++
			n, err := sink.Flush(ctx)
			if err != nil {
				return summary, err
			}
			summary.Events += n
		}

		cp.LastSlot = b.Clock.Slot
		cp.LastSeq = sink.Seq()
		summary.LastSlot = cp.LastSlot
		if err := r.checkpoint.Save(cp); err != nil {
			return summary, err
		}
	}

	if err := r.writeSnapshots(ctx, summary.LastSlot); err != nil {
		return summary, err
	}

	r.logger.Info("simulate complete",
		zap.String("run_id", summary.RunID),
		zap.Int("batches", summary.Batches),
		zap.Int("committed", summary.Committed),
		zap.Int("rejected", summary.Rejected),
		zap.Int("replayed", summary.Replayed),
		zap.Int("events", summary.Events),
	)
	return summary, nil
}

type batchError struct {
	record model.OperationError
	cause  error
}

func (r *Runner) applyBatch(ctx context.Context, b SlotBatch) *batchError {
	steps := make([]batch.Step, 0, len(b.Records))
	for i, rec := range b.Records {
		step, err := r.builder.Build(rec)
		if err != nil {
			return &batchError{record: operationError(b.Clock, i, rec.Op, rec.Signer, err), cause: err}
		}
		steps = append(steps, step)
	}

	err := r.executor.Run(ctx, b.Clock, steps)
	if err == nil {
		return nil
	}
	var stepErr *batch.StepError
	if errors.As(err, &stepErr) && stepErr.Index >= 0 && stepErr.Index < len(b.Records) {
		rec := b.Records[stepErr.Index]
		return &batchError{record: operationError(b.Clock, stepErr.Index, rec.Op, rec.Signer, stepErr.Err), cause: stepErr.Err}
	}
	cause := err
	if stepErr != nil {
		cause = stepErr.Err
	}
	return &batchError{record: operationError(b.Clock, -1, "settle", "", cause), cause: cause}
}

func operationError(clock model.Clock, index int, op, signer string, err error) model.OperationError {
	return model.OperationError{
		Slot:      clock.Slot,
		Timestamp: clock.UnixTimestamp,
		Index:     index,
		Op:        op,
		Signer:    signer,
		Code:      ammerr.CodeOf(err),
		Category:  string(ammerr.CategoryOf(err)),
		Error:     err.Error(),
	}
}

func (r *Runner) writeSnapshots(ctx context.Context, slot uint64) error {
	if len(r.deps.Snapshots) == 0 {
		return nil
	}
	pools := r.store.Pools()
	snapshots := make([]model.PoolSnapshot, 0, len(pools))
	for i := range pools {
		snapshots = append(snapshots, pools[i].Snapshot(slot))
	}
	for _, s := range r.deps.Snapshots {
		if err := s.PutSnapshots(ctx, snapshots); err != nil {
			return fmt.Errorf("store snapshots: %w", err)
		}
	}
	return nil
}
