package aggregate

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"ammEngine/internal/model"
)

type memoryMetrics struct {
	rows  []model.PoolWindowMetrics
	calls int
}

func (m *memoryMetrics) UpsertWindowMetrics(_ context.Context, rows []model.PoolWindowMetrics) error {
	m.calls++
	m.rows = append(m.rows, rows...)
	return nil
}

const testPool = "0x00000000000000000000000000000000000000Aa"

func eventLine(t *testing.T, runID string, ts int64, name string, data interface{}) string {
	t.Helper()
	ev := model.Event{RunID: runID, Timestamp: ts, Pool: testPool, EventName: name, Decoded: data}
	line, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(line)
}

func journal(t *testing.T) string {
	lines := []string{
		eventLine(t, "run", 100, model.EventAddLiquidity, model.LiquidityEventData{ReserveA: "10000", ReserveB: "10000"}),
		eventLine(t, "run", 110, model.EventSwap, model.SwapEventData{AToB: true, AmountIn: "1000", Fee: "3", ReserveA: "11000", ReserveB: "9094"}),
		eventLine(t, "run", 115, model.EventFlashLoanRepay, model.FlashLoanEventData{FeeA: "9", FeeB: "0"}),
		eventLine(t, "other", 116, model.EventSwap, model.SwapEventData{AToB: true, AmountIn: "5", Fee: "1", ReserveA: "1", ReserveB: "1"}),
		"not json",
		eventLine(t, "run", 130, model.EventSwap, model.SwapEventData{AToB: false, AmountIn: "500", Fee: "1", ReserveA: "10506", ReserveB: "9594"}),
		eventLine(t, "run", 200, model.EventFlashLoanRepay, model.FlashLoanEventData{FeeA: "0", FeeB: "4"}),
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestAggregatorWindows(t *testing.T) {
	store := &memoryMetrics{}
	agg := NewAggregator(Config{WindowSeconds: 60, RunID: "run"}, store, nil)

	if err := agg.RunReader(context.Background(), strings.NewReader(journal(t))); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.rows) != 3 {
		t.Fatalf("windows = %d", len(store.rows))
	}

	first := store.rows[0]
	if first.WindowStart.Unix() != 60 || first.WindowEnd.Unix() != 120 {
		t.Fatalf("unexpected window: %v - %v", first.WindowStart, first.WindowEnd)
	}
	if first.SwapCount != 1 || first.VolumeA != "1000" || first.VolumeB != "0" || first.FeeA != "3" || first.FlashFeeA != "9" {
		t.Fatalf("unexpected totals: %+v", first)
	}
	if first.ReserveA == nil || *first.ReserveA != "11009" || *first.ReserveB != "9094" {
		t.Fatalf("unexpected reserves: %v %v", first.ReserveA, first.ReserveB)
	}
	if first.FeeRateB == nil || *first.FeeRateB != "0.000000000000000000" {
		t.Fatalf("unexpected fee rate b: %v", first.FeeRateB)
	}
	if first.APR == nil {
		t.Fatalf("expected apr")
	}

	second := store.rows[1]
	if second.SwapCount != 1 || second.VolumeB != "500" || second.FeeB != "1" || *second.ReserveA != "10506" {
		t.Fatalf("unexpected second window: %+v", second)
	}

	// a window without swaps starts from the previous closing reserves
	third := store.rows[2]
	if third.SwapCount != 0 || third.FlashFeeB != "4" || *third.ReserveB != "9598" {
		t.Fatalf("unexpected third window: %+v", third)
	}
	if third.FeeMethod != feeMethodEvents {
		t.Fatalf("fee method = %s", third.FeeMethod)
	}
}

func TestAggregatorResumesFromState(t *testing.T) {
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	store := &memoryMetrics{}

	agg := NewAggregator(Config{WindowSeconds: 60, StateStore: state}, store, nil)
	if err := agg.RunReader(context.Background(), strings.NewReader(journal(t))); err != nil {
		t.Fatalf("run: %v", err)
	}
	last, ok, err := state.Load(context.Background())
	if err != nil || !ok || last != 200 {
		t.Fatalf("state = %d %v %v", last, ok, err)
	}

	rows := len(store.rows)
	agg = NewAggregator(Config{WindowSeconds: 60, StateStore: state}, store, nil)
	if err := agg.RunReader(context.Background(), strings.NewReader(journal(t))); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(store.rows) != rows {
		t.Fatalf("rerun produced %d new rows", len(store.rows)-rows)
	}
}

func TestComputeAPR(t *testing.T) {
	a, b := "0.001", "0.003"
	apr := computeAPR(&a, &b, 365*24*3600)
	if apr == nil || *apr != "0.002000000000000000" {
		t.Fatalf("apr = %v", apr)
	}
	if computeAPR(&a, nil, 60) != nil {
		t.Fatalf("expected nil apr with one side missing")
	}
}

func TestFileStateStoreRejectsOtherScope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	written := &FileStateStore{Path: path, Scope: StateScope("run", 60)}
	if err := written.Save(ctx, 42); err != nil {
		t.Fatalf("save: %v", err)
	}
	if last, ok, err := written.Load(ctx); err != nil || !ok || last != 42 {
		t.Fatalf("load = %d %v %v", last, ok, err)
	}

	other := &FileStateStore{Path: path, Scope: StateScope("run", 300)}
	if _, _, err := other.Load(ctx); err == nil {
		t.Fatalf("expected scope mismatch error")
	}
	if StateScope("", 60) != "report:*:60" {
		t.Fatalf("scope = %s", StateScope("", 60))
	}
}
