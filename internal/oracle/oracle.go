package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/fixedpoint"
)

const (
	// TargetDecimals is the exponent of the common price scale.
	TargetDecimals = 9
	// DefaultMaxAge is the default feed staleness bound in seconds.
	DefaultMaxAge uint64 = 300
	// DefaultMaxDeviationBps is the default tolerance between pool and feed rates.
	DefaultMaxDeviationBps uint64 = 500
)

// Sample is one price observation: Price * 10^Exponent, published at
// PublishTime (unix seconds).
type Sample struct {
	Price       int64  `json:"price" mapstructure:"price"`
	Confidence  uint64 `json:"confidence" mapstructure:"confidence"`
	Exponent    int32  `json:"exponent" mapstructure:"exponent"`
	PublishTime int64  `json:"publish_time" mapstructure:"publish_time"`
}

// Feed returns the most recent sample for a feed reference.
type Feed interface {
	LatestSample(ctx context.Context, ref common.Address) (Sample, error)
}

// Normalize converts price*10^expo to the 10^9 scale.
func Normalize(price int64, expo int32) (uint64, error) {
	if price < 0 {
		return 0, ammerr.ErrInvalidOracle.Wrapf("negative price %d", price)
	}
	v := uint256.NewInt(uint64(price))
	shift := int64(expo) + TargetDecimals
	switch {
	case shift < 0:
		// price < 10^19, anything past that many digits truncates to zero
		if -shift > 19 {
			return 0, nil
		}
		v.Div(v, pow10(uint64(-shift)))
	case shift > 0:
		if shift > 38 {
			return 0, ammerr.ErrMathOverflow.Wrapf("exponent %d", expo)
		}
		v.Mul(v, pow10(uint64(shift)))
	}
	return fixedpoint.ToUint64(v)
}

func pow10(n uint64) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(n))
}

// ConfidenceBps returns the confidence interval as basis points of the price.
// A zero price reports 100%.
func ConfidenceBps(price int64, confidence uint64) (uint64, error) {
	if price == 0 {
		return fixedpoint.MaxBps, nil
	}
	abs := uint64(price)
	if price < 0 {
		abs = uint64(-price)
	}
	return fixedpoint.MulDiv(confidence, fixedpoint.MaxBps, abs)
}

// Query reads the latest sample for ref and rejects it when it is older than
// maxAge seconds at now.
func Query(ctx context.Context, feed Feed, ref common.Address, now int64, maxAge uint64) (Sample, error) {
	if feed == nil {
		return Sample{}, ammerr.ErrInvalidOracle.Wrapf("no price feed configured")
	}
	sample, err := feed.LatestSample(ctx, ref)
	if err != nil {
		var engineErr *ammerr.Error
		if errors.As(err, &engineErr) {
			return Sample{}, err
		}
		return Sample{}, ammerr.ErrInvalidOracle.Wrapf("feed %s: %v", ref.Hex(), err)
	}
	if age := now - sample.PublishTime; age > 0 && uint64(age) > maxAge {
		return Sample{}, ammerr.ErrStaleOraclePrice.Wrapf("feed %s age %ds > %ds", ref.Hex(), age, maxAge)
	}
	return sample, nil
}

// CheckDeviation rejects a swap whose realized rate deviates from the feed
// rate by more than maxDeviationBps. The feed rate is priceB / priceA for
// either swap direction and the realized rate is amountOut / amountIn, both
// scaled by 10^9.
func CheckDeviation(amountIn, amountOut uint64, priceA, priceB Sample, maxDeviationBps uint64) error {
	oracleRate, err := FeedRate(priceA, priceB)
	if err != nil {
		return err
	}
	if amountIn == 0 {
		return ammerr.ErrDivisionByZero.Wrapf("swap rate")
	}
	actualRate, err := fixedpoint.MulDivU128(uint256.NewInt(amountOut), uint256.NewInt(fixedpoint.PricePrecision), uint256.NewInt(amountIn))
	if err != nil {
		return err
	}

	deviation := fixedpoint.DeviationBpsU128(actualRate, oracleRate)
	if deviation.Gt(uint256.NewInt(maxDeviationBps)) {
		return ammerr.ErrOraclePriceDeviation.Wrapf("deviation %s bps > %d bps", deviation.ToBig().String(), maxDeviationBps)
	}
	return nil
}

// FeedRate returns normalized(priceB) * 10^9 / normalized(priceA).
func FeedRate(priceA, priceB Sample) (*uint256.Int, error) {
	normA, err := Normalize(priceA.Price, priceA.Exponent)
	if err != nil {
		return nil, err
	}
	normB, err := Normalize(priceB.Price, priceB.Exponent)
	if err != nil {
		return nil, err
	}
	if normA == 0 {
		return nil, ammerr.ErrDivisionByZero.Wrapf("oracle rate")
	}
	return fixedpoint.MulDivU128(uint256.NewInt(normB), uint256.NewInt(fixedpoint.PricePrecision), uint256.NewInt(normA))
}

// SwapCheck is the input of Guard.ValidateSwap.
type SwapCheck struct {
	FeedA           common.Address
	FeedB           common.Address
	AmountIn        uint64
	AmountOut       uint64
	Now             int64
	MaxAge          uint64
	MaxDeviationBps uint64
}

// Guard validates realized swap rates against a price feed.
type Guard struct {
	feed Feed
}

func NewGuard(feed Feed) *Guard {
	return &Guard{feed: feed}
}

// ValidateSwap queries fresh samples for both pool assets and checks the deviation.
func (g *Guard) ValidateSwap(ctx context.Context, c SwapCheck) error {
	priceA, err := Query(ctx, g.feed, c.FeedA, c.Now, c.MaxAge)
	if err != nil {
		return err
	}
	priceB, err := Query(ctx, g.feed, c.FeedB, c.Now, c.MaxAge)
	if err != nil {
		return err
	}
	return CheckDeviation(c.AmountIn, c.AmountOut, priceA, priceB, c.MaxDeviationBps)
}

// StaticFeed serves configured samples. It is safe for concurrent use.
type StaticFeed struct {
	mu      sync.RWMutex
	samples map[common.Address]Sample
}

func NewStaticFeed() *StaticFeed {
	return &StaticFeed{samples: make(map[common.Address]Sample)}
}

func (f *StaticFeed) Set(ref common.Address, sample Sample) {
	f.mu.Lock()
	f.samples[ref] = sample
	f.mu.Unlock()
}

func (f *StaticFeed) LatestSample(_ context.Context, ref common.Address) (Sample, error) {
	f.mu.RLock()
	sample, ok := f.samples[ref]
	f.mu.RUnlock()
	if !ok {
		return Sample{}, fmt.Errorf("unknown feed %s", ref.Hex())
	}
	return sample, nil
}
