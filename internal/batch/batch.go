package batch

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/amm"
	"ammEngine/internal/metrics"
	"ammEngine/internal/model"
)

// Checkpointer is state that can be captured and restored.
type Checkpointer interface {
	Checkpoint() func()
}

// Step is one operation of a batch.
type Step struct {
	Name   string
	Signer common.Address
	Run    func(ctx context.Context, clock model.Clock) error
}

// StepError reports the step that aborted a batch.
type StepError struct {
	Slot  uint64
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("slot %d settle: %v", e.Slot, e.Err)
	}
	return fmt.Sprintf("slot %d step %d (%s): %v", e.Slot, e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type pendingEvent struct {
	clock model.Clock
	pool  common.Address
	name  string
	data  interface{}
}

// buffer holds events until the batch commits.
type buffer struct {
	events []pendingEvent
}

func (b *buffer) Emit(clock model.Clock, pool common.Address, name string, data interface{}) {
	b.events = append(b.events, pendingEvent{clock: clock, pool: pool, name: name, data: data})
}

// Executor runs the steps of one slot all-or-nothing: when a step fails, or a
// flash loan opened in the slot is left unrepaid, every registered state is
// restored and no events are released.
type Executor struct {
	engine  *amm.Engine
	state   []Checkpointer
	pending *buffer
	sink    amm.Emitter
	metrics *metrics.EngineMetrics
	logger  *zap.Logger
}

// NewExecutor takes over the engine's event stream; committed events are
// forwarded to sink.
func NewExecutor(engine *amm.Engine, sink amm.Emitter, m *metrics.EngineMetrics, logger *zap.Logger, state ...Checkpointer) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	pending := &buffer{}
	engine.SetEmitter(pending)
	return &Executor{
		engine:  engine,
		state:   state,
		pending: pending,
		sink:    sink,
		metrics: m,
		logger:  logger,
	}
}

// Run applies steps at clock.
func (x *Executor) Run(ctx context.Context, clock model.Clock, steps []Step) error {
	restores := make([]func(), 0, len(x.state))
	for _, s := range x.state {
		restores = append(restores, s.Checkpoint())
	}
	x.pending.events = x.pending.events[:0]

	rollback := func(err *StepError) error {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		x.pending.events = x.pending.events[:0]
		x.metrics.ObserveBatch("rolled_back")
		x.logger.Warn("batch rolled back",
			zap.Uint64("slot", clock.Slot),
			zap.Int("step", err.Index),
			zap.String("op", err.Name),
			zap.Error(err.Err),
		)
		return err
	}

	for i, step := range steps {
		select {
		case <-ctx.Done():
			return rollback(&StepError{Slot: clock.Slot, Index: i, Name: step.Name, Err: ctx.Err()})
		default:
		}
		if err := step.Run(ctx, clock); err != nil {
			return rollback(&StepError{Slot: clock.Slot, Index: i, Name: step.Name, Err: err})
		}
	}
	if err := x.engine.SettleFlashLoans(clock.Slot); err != nil {
		return rollback(&StepError{Slot: clock.Slot, Index: -1, Name: "settle", Err: err})
	}

	if x.sink != nil {
		for _, ev := range x.pending.events {
			x.sink.Emit(ev.clock, ev.pool, ev.name, ev.data)
		}
	}
	x.pending.events = x.pending.events[:0]
	x.metrics.ObserveBatch("committed")
	x.logger.Debug("batch committed", zap.Uint64("slot", clock.Slot), zap.Int("steps", len(steps)))
	return nil
}
