package dex

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"binbook/internal/chain"
	"binbook/internal/model"
)

// PairMetaCache caches pair metadata by address.
type PairMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PairMeta
}

func NewPairMetaCache() *PairMetaCache {
	return &PairMetaCache{data: make(map[common.Address]model.PairMeta)}
}

func (c *PairMetaCache) Get(address common.Address) (model.PairMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PairMetaCache) Set(address common.Address, meta model.PairMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// FetchPairMeta loads immutable pair metadata plus the current active id
// and static fee parameters via eth_call.
func FetchPairMeta(ctx context.Context, chainClient *chain.Client, pair common.Address, tokenCache *TokenMetaCache, logger *zap.Logger) (model.PairMeta, error) {
	if chainClient == nil {
		return model.PairMeta{}, fmt.Errorf("chain client is nil")
	}
	parsed, err := PairABI()
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("parse pair abi: %w", err)
	}

	values, err := callPairMethod(ctx, chainClient, pair, parsed, "getTokenX")
	if err != nil {
		return model.PairMeta{}, err
	}
	tokenX, err := asAddress(values[0])
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("token x: %w", err)
	}

	values, err = callPairMethod(ctx, chainClient, pair, parsed, "getTokenY")
	if err != nil {
		return model.PairMeta{}, err
	}
	tokenY, err := asAddress(values[0])
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("token y: %w", err)
	}

	values, err = callPairMethod(ctx, chainClient, pair, parsed, "getBinStep")
	if err != nil {
		return model.PairMeta{}, err
	}
	binStep, err := asUint16(values[0])
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("bin step: %w", err)
	}

	values, err = callPairMethod(ctx, chainClient, pair, parsed, "getActiveId")
	if err != nil {
		return model.PairMeta{}, err
	}
	activeID, err := binIDFromValue(values[0])
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("active id: %w", err)
	}

	static, err := fetchStaticFeeParameters(ctx, chainClient, pair, parsed)
	if err != nil {
		return model.PairMeta{}, err
	}

	meta := model.PairMeta{
		Address:  strings.ToLower(pair.Hex()),
		TokenX:   model.TokenMeta{Address: tokenX.Hex()},
		TokenY:   model.TokenMeta{Address: tokenY.Hex()},
		BinStep:  binStep,
		ActiveID: activeID,
		Static:   &static,
	}

	log := logger
	if log == nil {
		log = zap.NewNop()
	}
	meta.TokenX = resolveTokenMeta(ctx, chainClient, tokenX, tokenCache, log)
	meta.TokenY = resolveTokenMeta(ctx, chainClient, tokenY, tokenCache, log)

	return meta, nil
}

func fetchStaticFeeParameters(ctx context.Context, chainClient *chain.Client, pair common.Address, parsed abi.ABI) (model.StaticFeeConfig, error) {
	values, err := callPairMethod(ctx, chainClient, pair, parsed, "getStaticFeeParameters")
	if err != nil {
		return model.StaticFeeConfig{}, err
	}
	if len(values) != 7 {
		return model.StaticFeeConfig{}, fmt.Errorf("unexpected static fee values: %d", len(values))
	}

	cfg := model.StaticFeeConfig{}
	if cfg.BaseFactor, err = asUint16(values[0]); err != nil {
		return model.StaticFeeConfig{}, fmt.Errorf("base factor: %w", err)
	}
	if cfg.FilterPeriod, err = asUint16(values[1]); err != nil {
		return model.StaticFeeConfig{}, fmt.Errorf("filter period: %w", err)
	}
	if cfg.DecayPeriod, err = asUint16(values[2]); err != nil {
		return model.StaticFeeConfig{}, fmt.Errorf("decay period: %w", err)
	}
	if cfg.ReductionFactor, err = asUint16(values[3]); err != nil {
		return model.StaticFeeConfig{}, fmt.Errorf("reduction factor: %w", err)
	}
	vfc, err := binIDFromValue(values[4])
	if err != nil {
		return model.StaticFeeConfig{}, fmt.Errorf("variable fee control: %w", err)
	}
	cfg.VariableFeeControl = vfc
	if cfg.ProtocolShare, err = asUint16(values[5]); err != nil {
		return model.StaticFeeConfig{}, fmt.Errorf("protocol share: %w", err)
	}
	mva, err := binIDFromValue(values[6])
	if err != nil {
		return model.StaticFeeConfig{}, fmt.Errorf("max volatility accumulator: %w", err)
	}
	cfg.MaxVolatilityAccumulator = mva
	return cfg, nil
}

func resolveTokenMeta(ctx context.Context, chainClient *chain.Client, token common.Address, cache *TokenMetaCache, log *zap.Logger) model.TokenMeta {
	if cache != nil {
		if meta, ok := cache.Get(token); ok {
			return meta
		}
	}
	meta, err := FetchTokenMeta(ctx, chainClient, token, log)
	if err != nil {
		log.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	if cache != nil {
		cache.Set(token, meta)
	}
	return meta
}

func callPairMethod(ctx context.Context, chainClient *chain.Client, pair common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pair, Data: data}
	resp, err := chainClient.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABIString      abi.ABI
	erc20ABIStringOnce  sync.Once
	erc20ABIStringErr   error
	erc20ABIBytes32     abi.ABI
	erc20ABIBytes32Once sync.Once
	erc20ABIBytes32Err  error
)

func erc20ABIStringInstance() (abi.ABI, error) {
	erc20ABIStringOnce.Do(func() {
		erc20ABIString, erc20ABIStringErr = abi.JSON(strings.NewReader(erc20ABIStringJSON))
	})
	return erc20ABIString, erc20ABIStringErr
}

func erc20ABIBytes32Instance() (abi.ABI, error) {
	erc20ABIBytes32Once.Do(func() {
		erc20ABIBytes32, erc20ABIBytes32Err = abi.JSON(strings.NewReader(erc20ABIBytes32JSON))
	})
	return erc20ABIBytes32, erc20ABIBytes32Err
}

// FetchTokenMeta loads token metadata via ERC20 calls, falling back to the
// bytes32 symbol/name variants some older tokens use.
func FetchTokenMeta(ctx context.Context, chainClient *chain.Client, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if chainClient == nil {
		return meta, fmt.Errorf("chain client is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := chainClient.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("name", stringABI); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := call("name", bytes32ABI); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else if logger != nil {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	default:
		b, err := asBigInt(value)
		if err != nil {
			return 0, fmt.Errorf("unsupported uint8 type %T", value)
		}
		if !b.IsUint64() || b.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 out of range: %s", b)
		}
		return uint8(b.Uint64()), nil
	}
}
