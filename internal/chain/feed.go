package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/oracle"
)

// FeedConfig holds retry settings for AggregatorFeed.
type FeedConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// AggregatorFeed reads prices from on-chain aggregator contracts. The feed
// reference of a pool is the aggregator address.
type AggregatorFeed struct {
	client *Client
	cfg    FeedConfig
	logger *zap.Logger

	mu       sync.RWMutex
	decimals map[common.Address]uint8
}

var _ oracle.Feed = (*AggregatorFeed)(nil)

func NewAggregatorFeed(client *Client, cfg FeedConfig, logger *zap.Logger) *AggregatorFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregatorFeed{
		client:   client,
		cfg:      cfg,
		logger:   logger,
		decimals: make(map[common.Address]uint8),
	}
}

// LatestSample returns the latest round of the aggregator at ref.
func (f *AggregatorFeed) LatestSample(ctx context.Context, ref common.Address) (oracle.Sample, error) {
	if f.client == nil {
		return oracle.Sample{}, fmt.Errorf("chain client is nil")
	}
	parsed, err := AggregatorABI()
	if err != nil {
		return oracle.Sample{}, fmt.Errorf("parse aggregator abi: %w", err)
	}

	decimals, err := f.feedDecimals(ctx, parsed, ref)
	if err != nil {
		return oracle.Sample{}, err
	}
	values, err := f.callWithRetry(ctx, parsed, ref, "latestRoundData")
	if err != nil {
		return oracle.Sample{}, err
	}
	if len(values) < 4 {
		return oracle.Sample{}, fmt.Errorf("latestRoundData: %d values", len(values))
	}

	answer, err := asBigInt(values[1])
	if err != nil {
		return oracle.Sample{}, fmt.Errorf("answer: %w", err)
	}
	updatedAt, err := asBigInt(values[3])
	if err != nil {
		return oracle.Sample{}, fmt.Errorf("updatedAt: %w", err)
	}
	if answer.Sign() <= 0 || !answer.IsInt64() {
		return oracle.Sample{}, ammerr.ErrInvalidOracle.Wrapf("feed %s answer %s", ref.Hex(), answer.String())
	}
	if !updatedAt.IsInt64() {
		return oracle.Sample{}, ammerr.ErrInvalidOracle.Wrapf("feed %s updatedAt %s", ref.Hex(), updatedAt.String())
	}

	return oracle.Sample{
		Price:       answer.Int64(),
		Exponent:    -int32(decimals),
		PublishTime: updatedAt.Int64(),
	}, nil
}

func (f *AggregatorFeed) feedDecimals(ctx context.Context, parsed abi.ABI, ref common.Address) (uint8, error) {
	f.mu.RLock()
	decimals, ok := f.decimals[ref]
	f.mu.RUnlock()
	if ok {
		return decimals, nil
	}

	values, err := f.callWithRetry(ctx, parsed, ref, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok = values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unsupported type %T", values[0])
	}

	f.mu.Lock()
	f.decimals[ref] = decimals
	f.mu.Unlock()
	return decimals, nil
}

func (f *AggregatorFeed) callWithRetry(ctx context.Context, parsed abi.ABI, to common.Address, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var resp []byte
	err = withRetry(ctx, f.cfg.MaxRetries, f.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		resp, err = f.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			f.logger.Warn("aggregator call failed", zap.String("feed", to.Hex()), zap.String("method", method), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: no values", method)
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
