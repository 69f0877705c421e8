package amm

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ammEngine/internal/custody"
	"ammEngine/internal/model"
	"ammEngine/internal/oracle"
	"ammEngine/internal/store"
)

var (
	authority = common.HexToAddress("0xa11ce0000000000000000000000000000000aaaa")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	assetA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	assetB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	assetC = common.HexToAddress("0x000000000000000000000000000000000000000c")
	reward = common.HexToAddress("0x00000000000000000000000000000000000000ee")

	feedA = common.HexToAddress("0x00000000000000000000000000000000000f000a")
	feedB = common.HexToAddress("0x00000000000000000000000000000000000f000b")
	feedC = common.HexToAddress("0x00000000000000000000000000000000000f000c")
)

const startTime int64 = 1_700_000_000

var ctx = context.Background()

type recordedEvent struct {
	pool common.Address
	name string
	data interface{}
}

type eventLog struct {
	events []recordedEvent
}

func (l *eventLog) Emit(_ model.Clock, pool common.Address, name string, data interface{}) {
	l.events = append(l.events, recordedEvent{pool: pool, name: name, data: data})
}

func (l *eventLog) names() []string {
	out := make([]string, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.name)
	}
	return out
}

type fixture struct {
	t      *testing.T
	store  *store.MemoryStore
	ledger *custody.Ledger
	feed   *oracle.StaticFeed
	events *eventLog
	engine *Engine
	clock  model.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		store:  store.NewMemoryStore(),
		ledger: custody.NewLedger(),
		feed:   oracle.NewStaticFeed(),
		events: &eventLog{},
		clock:  model.Clock{Slot: 100, UnixTimestamp: startTime},
	}
	f.engine = New(f.store, f.ledger, f.feed, WithEmitter(f.events))
	for _, ref := range []common.Address{feedA, feedB, feedC} {
		f.setPrice(ref, 1_000_000_000, -9)
	}
	for _, user := range []common.Address{alice, bob} {
		for _, asset := range []common.Address{assetA, assetB, assetC, reward} {
			require.NoError(t, f.ledger.Mint(asset, user, 1_000_000_000_000))
		}
	}
	return f
}

func (f *fixture) setPrice(ref common.Address, price int64, expo int32) {
	f.feed.Set(ref, oracle.Sample{Price: price, Exponent: expo, PublishTime: f.clock.UnixTimestamp})
}

// advance moves the clock and refreshes every feed sample.
func (f *fixture) advance(slots uint64, seconds int64) {
	f.clock.Slot += slots
	f.clock.UnixTimestamp += seconds
	for _, ref := range []common.Address{feedA, feedB, feedC} {
		sample, err := f.feed.LatestSample(ctx, ref)
		require.NoError(f.t, err)
		sample.PublishTime = f.clock.UnixTimestamp
		f.feed.Set(ref, sample)
	}
}

func (f *fixture) initPool(a, b common.Address, maxDeviationBps uint64) model.Pool {
	f.t.Helper()
	feeds := map[common.Address]common.Address{assetA: feedA, assetB: feedB, assetC: feedC}
	pool, err := f.engine.InitializePool(f.clock, InitPoolParams{
		Authority:             authority,
		AssetA:                a,
		AssetB:                b,
		OracleA:               feeds[a],
		OracleB:               feeds[b],
		FeeNumerator:          3,
		FeeDenominator:        1000,
		OracleMaxAge:          oracle.DefaultMaxAge,
		OracleMaxDeviationBps: maxDeviationBps,
	})
	require.NoError(f.t, err)
	return pool
}

func (f *fixture) pool(addr common.Address) model.Pool {
	f.t.Helper()
	pool, ok := f.store.Pool(addr)
	require.True(f.t, ok)
	return pool
}

// requireVaultsMatch checks that custody holds exactly the recorded reserves.
func (f *fixture) requireVaultsMatch(addr common.Address) {
	f.t.Helper()
	pool := f.pool(addr)
	require.Equal(f.t, pool.ReserveA, f.ledger.Balance(pool.AssetA, pool.VaultA))
	require.Equal(f.t, pool.ReserveB, f.ledger.Balance(pool.AssetB, pool.VaultB))
	require.Equal(f.t, pool.TotalLPSupply, f.ledger.Supply(pool.LPMint))
}
