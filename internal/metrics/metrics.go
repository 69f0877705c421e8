package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics counts engine operations, rejections and value flows.
type EngineMetrics struct {
	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec
	volume     *prometheus.CounterVec
	fees       *prometheus.CounterVec
	flashFees  *prometheus.CounterVec
	rewards    *prometheus.CounterVec
	batches    *prometheus.CounterVec
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the process-wide recorder registered on the default registry.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = New(prometheus.DefaultRegisterer)
	})
	return engineRegistry
}

// New builds a recorder and registers it on reg.
func New(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_operations_total",
			Help: "Count of applied engine operations by kind.",
		}, []string{"op"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_rejections_total",
			Help: "Count of rejected engine operations by kind and error code.",
		}, []string{"op", "code"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_swap_volume_total",
			Help: "Swap input volume by pool and input asset.",
		}, []string{"pool", "asset"}),
		fees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_swap_fees_total",
			Help: "Swap fees collected by pool and input asset.",
		}, []string{"pool", "asset"}),
		flashFees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_flash_loan_fees_total",
			Help: "Flash loan fees collected by pool and asset.",
		}, []string{"pool", "asset"}),
		rewards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_farm_rewards_paid_total",
			Help: "Farming rewards paid out by farm.",
		}, []string{"farm"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_batches_total",
			Help: "Executed batches by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.operations, m.rejections, m.volume, m.fees, m.flashFees, m.rewards, m.batches)
	return m
}

func (m *EngineMetrics) ObserveOperation(op string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(label(op)).Inc()
}

func (m *EngineMetrics) ObserveRejection(op, code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(label(op), label(code)).Inc()
}

func (m *EngineMetrics) ObserveSwap(pool, asset string, amountIn, fee uint64) {
	if m == nil {
		return
	}
	m.volume.WithLabelValues(label(pool), label(asset)).Add(float64(amountIn))
	m.fees.WithLabelValues(label(pool), label(asset)).Add(float64(fee))
}

func (m *EngineMetrics) ObserveFlashFee(pool, asset string, fee uint64) {
	if m == nil || fee == 0 {
		return
	}
	m.flashFees.WithLabelValues(label(pool), label(asset)).Add(float64(fee))
}

func (m *EngineMetrics) ObserveRewards(farm string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.rewards.WithLabelValues(label(farm)).Add(float64(amount))
}

func (m *EngineMetrics) ObserveBatch(outcome string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(label(outcome)).Inc()
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
