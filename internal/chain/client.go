// Package chain wraps the go-ethereum RPC surface the shadow pipeline
// needs: log scans, block timestamps, and read-only contract calls.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Long scans touch each block once per pair batch, so a bounded timestamp
// cache covers the reuse without growing with the scan.
const timestampCacheSize = 8192

// Client is the read-only chain access used by the shadow runner and the
// pair metadata fetcher.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu         sync.Mutex
	chainID    uint64
	hasChainID bool
	timestamps *lru.Cache[uint64, uint64]
}

// NewClient dials the RPC endpoint.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	timestamps, err := lru.New[uint64, uint64](timestampCacheSize)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	return &Client{
		rpcClient:  rpcClient,
		ethClient:  ethclient.NewClient(rpcClient),
		timestamps: timestamps,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID fetches the chain id once and serves it from memory after that.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasChainID {
		return c.chainID, nil
	}
	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain id: %w", err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id %s does not fit uint64", id)
	}
	c.chainID = id.Uint64()
	c.hasChainID = true
	return c.chainID, nil
}

// LatestBlockNumber returns the current head block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockTimestamp returns the block's timestamp, served from the cache when
// the block was seen before.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	if ts, ok := c.timestamps.Get(number); ok {
		return ts, nil
	}
	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fmt.Errorf("header %d: %w", number, err)
	}
	c.timestamps.Add(number, header.Time)
	return header.Time, nil
}

// FilterLogs scans [fromBlock, toBlock] for the given pair addresses,
// restricted to the topics the decoder understands when any are given.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topics []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topics) > 0 {
		query.Topics = [][]common.Hash{topics}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// CallContract performs a read-only contract call. A nil block number reads
// the latest state.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}
