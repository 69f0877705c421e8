package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammEngine/internal/model"
)

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS pool_snapshots (
	pool_address TEXT PRIMARY KEY,
	authority TEXT NOT NULL,
	asset_a TEXT NOT NULL,
	asset_b TEXT NOT NULL,
	reserve_a NUMERIC NOT NULL,
	reserve_b NUMERIC NOT NULL,
	total_lp_supply NUMERIC NOT NULL,
	fee_numerator BIGINT NOT NULL,
	fee_denominator BIGINT NOT NULL,
	is_paused BOOLEAN NOT NULL,
	cumulative_price_a NUMERIC NOT NULL,
	cumulative_price_b NUMERIC NOT NULL,
	total_volume_a NUMERIC NOT NULL,
	total_volume_b NUMERIC NOT NULL,
	total_fees_a NUMERIC NOT NULL,
	total_fees_b NUMERIC NOT NULL,
	slot BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS amm_events (
	run_id TEXT NOT NULL,
	seq BIGINT NOT NULL,
	slot BIGINT NOT NULL,
	ts BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	event_name TEXT NOT NULL,
	decoded JSONB NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS pool_window_metrics (
	run_id TEXT NOT NULL,
	pool_address TEXT NOT NULL,
	window_size_seconds BIGINT NOT NULL,
	window_start_ts TIMESTAMPTZ NOT NULL,
	window_end_ts TIMESTAMPTZ NOT NULL,
	swap_count BIGINT NOT NULL,
	volume_a NUMERIC NOT NULL,
	volume_b NUMERIC NOT NULL,
	fee_a NUMERIC NOT NULL,
	fee_b NUMERIC NOT NULL,
	flash_fee_a NUMERIC NOT NULL,
	flash_fee_b NUMERIC NOT NULL,
	fee_rate_a NUMERIC,
	fee_rate_b NUMERIC,
	reserve_a NUMERIC,
	reserve_b NUMERIC,
	apr NUMERIC,
	fee_method TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, pool_address, window_size_seconds, window_start_ts)
);
CREATE TABLE IF NOT EXISTS engine_state (
	name TEXT PRIMARY KEY,
	last_processed_ts BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// Store provides Postgres persistence for snapshots, events and metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// UpsertPools inserts or updates the latest snapshot of each pool. Older
// snapshots never overwrite newer ones.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO pool_snapshots (
				pool_address, authority, asset_a, asset_b, reserve_a, reserve_b, total_lp_supply,
				fee_numerator, fee_denominator, is_paused, cumulative_price_a, cumulative_price_b,
				total_volume_a, total_volume_b, total_fees_a, total_fees_b, slot, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				authority = EXCLUDED.authority,
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				total_lp_supply = EXCLUDED.total_lp_supply,
				fee_numerator = EXCLUDED.fee_numerator,
				fee_denominator = EXCLUDED.fee_denominator,
				is_paused = EXCLUDED.is_paused,
				cumulative_price_a = EXCLUDED.cumulative_price_a,
				cumulative_price_b = EXCLUDED.cumulative_price_b,
				total_volume_a = EXCLUDED.total_volume_a,
				total_volume_b = EXCLUDED.total_volume_b,
				total_fees_a = EXCLUDED.total_fees_a,
				total_fees_b = EXCLUDED.total_fees_b,
				slot = EXCLUDED.slot,
				updated_at = now()
			WHERE pool_snapshots.slot <= EXCLUDED.slot
		`,
			p.Address,
			p.Authority,
			p.AssetA,
			p.AssetB,
			p.ReserveA,
			p.ReserveB,
			p.TotalLPSupply,
			int64(p.FeeNumerator),
			int64(p.FeeDenominator),
			p.IsPaused,
			p.CumulativePriceA,
			p.CumulativePriceB,
			p.TotalVolumeA,
			p.TotalVolumeB,
			p.TotalFeesA,
			p.TotalFeesB,
			int64(p.Slot),
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// PutSnapshots stores snapshots through UpsertPools.
func (s *Store) PutSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error {
	return s.UpsertPools(ctx, snapshots)
}

// PutEvents inserts events; rows already present for (run_id, seq) are kept.
func (s *Store) PutEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		decoded, err := json.Marshal(ev.Decoded)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", ev.Seq, err)
		}
		batch.Queue(`
			INSERT INTO amm_events (run_id, seq, slot, ts, pool_address, event_name, decoded)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (run_id, seq) DO NOTHING
		`,
			ev.RunID,
			int64(ev.Seq),
			int64(ev.Slot),
			ev.Timestamp,
			ev.Pool,
			ev.EventName,
			decoded,
		)
	}
	return s.sendBatch(ctx, batch, len(events))
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				run_id, pool_address, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, volume_a, volume_b, fee_a, fee_b, flash_fee_a, flash_fee_b,
				fee_rate_a, fee_rate_b, reserve_a, reserve_b, apr, fee_method, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now(),now())
			ON CONFLICT (run_id, pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				volume_a = EXCLUDED.volume_a,
				volume_b = EXCLUDED.volume_b,
				fee_a = EXCLUDED.fee_a,
				fee_b = EXCLUDED.fee_b,
				flash_fee_a = EXCLUDED.flash_fee_a,
				flash_fee_b = EXCLUDED.flash_fee_b,
				fee_rate_a = EXCLUDED.fee_rate_a,
				fee_rate_b = EXCLUDED.fee_rate_b,
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				apr = EXCLUDED.apr,
				fee_method = EXCLUDED.fee_method,
				updated_at = now()
		`,
			m.RunID,
			m.PoolAddress,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			m.VolumeA,
			m.VolumeB,
			m.FeeA,
			m.FeeB,
			m.FlashFeeA,
			m.FlashFeeB,
			m.FeeRateA,
			m.FeeRateB,
			m.ReserveA,
			m.ReserveB,
			m.APR,
			m.FeeMethod,
		)
	}
	return s.sendBatch(ctx, batch, len(metrics))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM engine_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO engine_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}
