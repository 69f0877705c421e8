package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"ammEngine/internal/model"
)

const feeMethodEvents = "exact_from_events"

// MetricsStore receives finished window metrics.
type MetricsStore interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	// RunID limits aggregation to one simulation run; empty means all runs.
	RunID      string
	StateStore StateStore
}

// Aggregator folds engine events into pool window metrics.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	// reserves carries the closing reserves of a pool into its next window.
	reserves map[string][2]*big.Int
}

func NewAggregator(cfg Config, store MetricsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		reserves:     make(map[string][2]*big.Int),
	}
}

// Run executes aggregation over an events JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return a.RunReader(ctx, file)
}

// RunReader aggregates events read from r. Events must be ordered by
// timestamp within a pool, which the simulator guarantees.
func (a *Aggregator) RunReader(ctx context.Context, r io.Reader) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped, failed int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.EventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode event", zap.Error(err))
			continue
		}

		if record.Timestamp < 0 || uint64(record.Timestamp) <= startTs || (a.cfg.RunID != "" && record.RunID != a.cfg.RunID) {
			skipped++
			continue
		}

		ts := uint64(record.Timestamp)
		start := int64(windowStart(ts, a.cfg.WindowSeconds))
		end := start + int64(a.cfg.WindowSeconds)

		key := poolKey(record.RunID, record.Pool)
		acc := a.accumulators[key]
		if acc == nil || acc.WindowStart != start {
			if acc != nil {
				batch = append(batch, a.flushAccumulator(key, acc))
				windows++
			}
			acc = a.newAccumulator(key, record, start, end)
			a.accumulators[key] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.Pool), zap.String("event", record.EventName))
			continue
		}

		if ts > maxTs {
			maxTs = ts
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	keys := make([]string, 0, len(a.accumulators))
	for key := range a.accumulators {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		batch = append(batch, a.flushAccumulator(key, a.accumulators[key]))
		windows++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) newAccumulator(key string, record model.EventRecord, start, end int64) *Accumulator {
	acc := NewAccumulator(record, start, end)
	if last, ok := a.reserves[key]; ok {
		acc.ReserveA = new(big.Int).Set(last[0])
		acc.ReserveB = new(big.Int).Set(last[1])
	}
	return acc
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flushAccumulator(key string, acc *Accumulator) model.PoolWindowMetrics {
	if acc.ReserveA != nil && acc.ReserveB != nil {
		a.reserves[key] = [2]*big.Int{new(big.Int).Set(acc.ReserveA), new(big.Int).Set(acc.ReserveB)}
	}

	earnedA := new(big.Int).Add(acc.FeeA, acc.FlashFeeA)
	earnedB := new(big.Int).Add(acc.FeeB, acc.FlashFeeB)
	feeRateA, feeRateB := computeFeeRates(earnedA, earnedB, acc.ReserveA, acc.ReserveB)
	apr := computeAPR(feeRateA, feeRateB, a.cfg.WindowSeconds)

	return model.PoolWindowMetrics{
		RunID:          acc.RunID,
		PoolAddress:    acc.PoolAddress,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(acc.WindowStart, 0).UTC(),
		WindowEnd:      time.Unix(acc.WindowEnd, 0).UTC(),
		SwapCount:      acc.SwapCount,
		VolumeA:        formatAmount(acc.VolumeA),
		VolumeB:        formatAmount(acc.VolumeB),
		FeeA:           formatAmount(acc.FeeA),
		FeeB:           formatAmount(acc.FeeB),
		FlashFeeA:      formatAmount(acc.FlashFeeA),
		FlashFeeB:      formatAmount(acc.FlashFeeB),
		FeeRateA:       feeRateA,
		FeeRateB:       feeRateB,
		ReserveA:       optionalAmount(acc.ReserveA),
		ReserveB:       optionalAmount(acc.ReserveB),
		APR:            apr,
		FeeMethod:      feeMethodEvents,
	}
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func poolKey(runID, address string) string {
	return runID + "/" + strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || uint64(entry.WindowStart) < min {
			min = uint64(entry.WindowStart)
		}
	}
	return min
}
