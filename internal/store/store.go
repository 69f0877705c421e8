package store

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/model"
)

// Store is the keyed record store the engine reads and writes. Getters return
// copies; nothing changes until the matching Put.
type Store interface {
	Pool(addr common.Address) (model.Pool, bool)
	PutPool(pool model.Pool)
	Pools() []model.Pool

	Provider(key model.ProviderKey) (model.LiquidityProvider, bool)
	PutProvider(provider model.LiquidityProvider)

	Farm(addr common.Address) (model.FarmingPool, bool)
	PutFarm(farm model.FarmingPool)

	Stake(key model.StakeKey) (model.UserStake, bool)
	PutStake(stake model.UserStake)

	FlashLoan(key model.LoanKey) (model.FlashLoanRecord, bool)
	PutFlashLoan(loan model.FlashLoanRecord)
	DeleteFlashLoan(key model.LoanKey)
	FlashLoans() []model.FlashLoanRecord
}

// ProviderOrNew returns the position for key, or a fresh one with its keys set
// and created=true. The fresh record is not stored.
func ProviderOrNew(s Store, key model.ProviderKey) (model.LiquidityProvider, bool) {
	if provider, ok := s.Provider(key); ok {
		return provider, false
	}
	return model.LiquidityProvider{Pool: key.Pool, Owner: key.Owner}, true
}

// StakeOrNew returns the stake for key, or a fresh one with created=true.
func StakeOrNew(s Store, key model.StakeKey) (model.UserStake, bool) {
	if stake, ok := s.Stake(key); ok {
		return stake, false
	}
	return model.UserStake{Farm: key.Farm, Owner: key.Owner}, true
}

// MemoryStore is an in-memory Store. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	pools     map[common.Address]model.Pool
	providers map[model.ProviderKey]model.LiquidityProvider
	farms     map[common.Address]model.FarmingPool
	stakes    map[model.StakeKey]model.UserStake
	loans     map[model.LoanKey]model.FlashLoanRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:     make(map[common.Address]model.Pool),
		providers: make(map[model.ProviderKey]model.LiquidityProvider),
		farms:     make(map[common.Address]model.FarmingPool),
		stakes:    make(map[model.StakeKey]model.UserStake),
		loans:     make(map[model.LoanKey]model.FlashLoanRecord),
	}
}

func (s *MemoryStore) Pool(addr common.Address) (model.Pool, bool) {
	s.mu.RLock()
	pool, ok := s.pools[addr]
	s.mu.RUnlock()
	return pool, ok
}

func (s *MemoryStore) PutPool(pool model.Pool) {
	s.mu.Lock()
	s.pools[pool.Address] = pool
	s.mu.Unlock()
}

// Pools returns every pool ordered by address.
func (s *MemoryStore) Pools() []model.Pool {
	s.mu.RLock()
	out := make([]model.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		out = append(out, pool)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address.Bytes(), out[j].Address.Bytes()) < 0
	})
	return out
}

func (s *MemoryStore) Provider(key model.ProviderKey) (model.LiquidityProvider, bool) {
	s.mu.RLock()
	provider, ok := s.providers[key]
	s.mu.RUnlock()
	return provider, ok
}

func (s *MemoryStore) PutProvider(provider model.LiquidityProvider) {
	s.mu.Lock()
	s.providers[model.ProviderKey{Pool: provider.Pool, Owner: provider.Owner}] = provider
	s.mu.Unlock()
}

func (s *MemoryStore) Farm(addr common.Address) (model.FarmingPool, bool) {
	s.mu.RLock()
	farm, ok := s.farms[addr]
	s.mu.RUnlock()
	return farm, ok
}

func (s *MemoryStore) PutFarm(farm model.FarmingPool) {
	s.mu.Lock()
	s.farms[farm.Address] = farm
	s.mu.Unlock()
}

func (s *MemoryStore) Stake(key model.StakeKey) (model.UserStake, bool) {
	s.mu.RLock()
	stake, ok := s.stakes[key]
	s.mu.RUnlock()
	return stake, ok
}

func (s *MemoryStore) PutStake(stake model.UserStake) {
	s.mu.Lock()
	s.stakes[model.StakeKey{Farm: stake.Farm, Owner: stake.Owner}] = stake
	s.mu.Unlock()
}

func (s *MemoryStore) FlashLoan(key model.LoanKey) (model.FlashLoanRecord, bool) {
	s.mu.RLock()
	loan, ok := s.loans[key]
	s.mu.RUnlock()
	return loan, ok
}

func (s *MemoryStore) PutFlashLoan(loan model.FlashLoanRecord) {
	s.mu.Lock()
	s.loans[model.LoanKey{Pool: loan.Pool, Borrower: loan.Borrower}] = loan
	s.mu.Unlock()
}

func (s *MemoryStore) DeleteFlashLoan(key model.LoanKey) {
	s.mu.Lock()
	delete(s.loans, key)
	s.mu.Unlock()
}

func (s *MemoryStore) FlashLoans() []model.FlashLoanRecord {
	s.mu.RLock()
	out := make([]model.FlashLoanRecord, 0, len(s.loans))
	for _, loan := range s.loans {
		out = append(out, loan)
	}
	s.mu.RUnlock()
	return out
}

// Checkpoint captures the current contents and returns a function that puts
// them back.
func (s *MemoryStore) Checkpoint() func() {
	s.mu.RLock()
	pools := copyMap(s.pools)
	providers := copyMap(s.providers)
	farms := copyMap(s.farms)
	stakes := copyMap(s.stakes)
	loans := copyMap(s.loans)
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.pools = copyMap(pools)
		s.providers = copyMap(providers)
		s.farms = copyMap(farms)
		s.stakes = copyMap(stakes)
		s.loans = copyMap(loans)
		s.mu.Unlock()
	}
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
