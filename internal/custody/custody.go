package custody

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/fixedpoint"
)

// Custody moves token balances on behalf of the engine.
type Custody interface {
	Transfer(asset, from, to common.Address, amount uint64) error
	Mint(asset, to common.Address, amount uint64) error
	Burn(asset, from common.Address, amount uint64) error
}

type account struct {
	asset common.Address
	owner common.Address
}

// Ledger is an in-memory Custody keyed by (asset, owner).
type Ledger struct {
	mu       sync.RWMutex
	balances map[account]uint64
	supply   map[common.Address]uint64
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[account]uint64),
		supply:   make(map[common.Address]uint64),
	}
}

// Balance returns the holding of owner in asset.
func (l *Ledger) Balance(asset, owner common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account{asset: asset, owner: owner}]
}

// Supply returns the total minted amount of asset.
func (l *Ledger) Supply(asset common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply[asset]
}

func (l *Ledger) Transfer(asset, from, to common.Address, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	src := account{asset: asset, owner: from}
	dst := account{asset: asset, owner: to}
	if l.balances[src] < amount {
		return ammerr.ErrInsufficientFunds.Wrapf("%s holds %d of %s, needs %d", from.Hex(), l.balances[src], asset.Hex(), amount)
	}
	credited, err := fixedpoint.CheckedAdd(l.balances[dst], amount)
	if err != nil {
		return err
	}
	l.balances[src] -= amount
	l.balances[dst] = credited
	return nil
}

func (l *Ledger) Mint(asset, to common.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	supply, err := fixedpoint.CheckedAdd(l.supply[asset], amount)
	if err != nil {
		return err
	}
	dst := account{asset: asset, owner: to}
	balance, err := fixedpoint.CheckedAdd(l.balances[dst], amount)
	if err != nil {
		return err
	}
	l.supply[asset] = supply
	l.balances[dst] = balance
	return nil
}

func (l *Ledger) Burn(asset, from common.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	src := account{asset: asset, owner: from}
	if l.balances[src] < amount {
		return ammerr.ErrInsufficientFunds.Wrapf("%s holds %d of %s, burning %d", from.Hex(), l.balances[src], asset.Hex(), amount)
	}
	l.balances[src] -= amount
	l.supply[asset] -= amount
	return nil
}

// Checkpoint captures all balances and returns a function that restores them.
func (l *Ledger) Checkpoint() func() {
	l.mu.RLock()
	balances := make(map[account]uint64, len(l.balances))
	for k, v := range l.balances {
		balances[k] = v
	}
	supply := make(map[common.Address]uint64, len(l.supply))
	for k, v := range l.supply {
		supply[k] = v
	}
	l.mu.RUnlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.balances = make(map[account]uint64, len(balances))
		for k, v := range balances {
			l.balances[k] = v
		}
		l.supply = make(map[common.Address]uint64, len(supply))
		for k, v := range supply {
			l.supply[k] = v
		}
	}
}
