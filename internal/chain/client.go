package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

const defaultCallTimeout = 10 * time.Second

// RPCClient implements Adapter over one or more JSON-RPC endpoints. Endpoints
// are tried in order; a transient failure on one moves to the next.
type RPCClient struct {
	urls        []string
	clients     []*ethclient.Client
	mu          sync.RWMutex
	current     int
	callTimeout time.Duration
	logger      zerolog.Logger
}

var _ Adapter = (*RPCClient)(nil)

// NewRPCClient creates a client for the given endpoint URLs. HTTP endpoints are
// dialed lazily by go-ethereum, so a dead endpoint only shows up on first use.
func NewRPCClient(urls []string, callTimeout time.Duration, logger zerolog.Logger) (*RPCClient, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}

	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	logger = logger.With().Str("component", "chain_client").Logger()

	clients := make([]*ethclient.Client, 0, len(urls))
	for _, url := range urls {
		client, err := ethclient.Dial(url)
		if err != nil {
			logger.Warn().
				Str("url", url).
				Err(err).
				Msg("Failed to connect to RPC node, will retry on use")
			clients = append(clients, nil)
			continue
		}
		clients = append(clients, client)
	}

	if allClientsNil(clients) {
		return nil, errors.New("failed to connect to any RPC node")
	}

	return &RPCClient{
		urls:        urls,
		clients:     clients,
		callTimeout: callTimeout,
		logger:      logger,
	}, nil
}

func allClientsNil(clients []*ethclient.Client) bool {
	for _, client := range clients {
		if client != nil {
			return false
		}
	}
	return true
}

// Close closes all client connections.
func (c *RPCClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, client := range c.clients {
		if client != nil {
			client.Close()
		}
	}
}

// ChainID returns the chain id reported by the provider.
func (c *RPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	var chainID *big.Int
	err := c.do(ctx, "chain.chainID", func(ctx context.Context, client *ethclient.Client) error {
		var err error
		chainID, err = client.ChainID(ctx)
		return err
	})
	return chainID, err
}

// GetNonce returns the pending nonce for the given address.
func (c *RPCClient) GetNonce(ctx context.Context, address common.Address) (uint64, error) {
	var nonce uint64
	err := c.do(ctx, "chain.getNonce", func(ctx context.Context, client *ethclient.Client) error {
		var err error
		nonce, err = client.PendingNonceAt(ctx, address)
		return err
	})
	return nonce, err
}

// SuggestGasPrice returns the provider's gas price suggestion.
func (c *RPCClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := c.do(ctx, "chain.getGasPrice", func(ctx context.Context, client *ethclient.Client) error {
		var err error
		price, err = client.SuggestGasPrice(ctx)
		return err
	})
	return price, err
}

// SubmitRaw broadcasts raw signed transaction bytes via eth_sendRawTransaction.
func (c *RPCClient) SubmitRaw(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	err := c.do(ctx, "chain.submitRaw", func(ctx context.Context, client *ethclient.Client) error {
		return client.Client().CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Bytes(raw))
	})
	return hash, err
}

// GetReceipt returns the receipt of hash, or nil if the provider has none yet.
func (c *RPCClient) GetReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.do(ctx, "chain.getReceipt", func(ctx context.Context, client *ethclient.Client) error {
		var err error
		receipt, err = client.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			receipt = nil
			return nil
		}
		return err
	})
	return receipt, err
}

// GetLogs filters logs for one contract and event signature.
func (c *RPCClient) GetLogs(ctx context.Context, query LogQuery) ([]types.Log, error) {
	filter := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(query.FromBlock),
		ToBlock:   new(big.Int).SetUint64(query.ToBlock),
		Addresses: []common.Address{query.Address},
		Topics:    [][]common.Hash{{query.EventID}},
	}

	var logs []types.Log
	err := c.do(ctx, "chain.getLogs", func(ctx context.Context, client *ethclient.Client) error {
		var err error
		logs, err = client.FilterLogs(ctx, filter)
		return err
	})
	return logs, err
}

// Call executes a read-only message call at the latest block.
func (c *RPCClient) Call(ctx context.Context, call CallRequest) ([]byte, error) {
	msg := ethereum.CallMsg{
		From: call.From,
		To:   &call.To,
		Data: call.Data,
	}

	var out []byte
	err := c.do(ctx, "chain.call", func(ctx context.Context, client *ethclient.Client) error {
		var err error
		out, err = client.CallContract(ctx, msg, nil)
		return err
	})
	return out, err
}

// LatestBlock returns the current head block number.
func (c *RPCClient) LatestBlock(ctx context.Context) (uint64, error) {
	var number uint64
	err := c.do(ctx, "chain.latestBlock", func(ctx context.Context, client *ethclient.Client) error {
		var err error
		number, err = client.BlockNumber(ctx)
		return err
	})
	return number, err
}

// BalanceAt returns the balance of an address at the latest known block.
func (c *RPCClient) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.do(ctx, "chain.balanceAt", func(ctx context.Context, client *ethclient.Client) error {
		var err error
		balance, err = client.BalanceAt(ctx, address, nil)
		return err
	})
	return balance, err
}

// do runs fn against the current endpoint and fails over to the next one on
// a transient error. Rejections are returned from the first endpoint that
// gives one: another node would judge the same request the same way.
func (c *RPCClient) do(ctx context.Context, op string, fn func(context.Context, *ethclient.Client) error) error {
	c.mu.RLock()
	start := c.current
	count := len(c.clients)
	c.mu.RUnlock()

	var lastErr error
	for i := 0; i < count; i++ {
		idx := (start + i) % count

		client, err := c.clientAt(idx)
		if err != nil {
			lastErr = gwerr.Wrap(err, gwerr.KindProviderUnavailable, op, "")
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		err = classify(ctx, op, fn(callCtx, client))
		cancel()

		if err == nil {
			c.setCurrent(idx)
			return nil
		}

		if ctx.Err() != nil || !gwerr.Retryable(err) {
			return err
		}

		c.logger.Warn().
			Str("url", c.urls[idx]).
			Str("op", op).
			Err(err).
			Msg("RPC endpoint unavailable, trying next")
		lastErr = err
	}

	return lastErr
}

// clientAt returns the client at idx, redialing it if the initial dial failed.
func (c *RPCClient) clientAt(idx int) (*ethclient.Client, error) {
	c.mu.RLock()
	client := c.clients[idx]
	c.mu.RUnlock()

	if client != nil {
		return client, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clients[idx] != nil {
		return c.clients[idx], nil
	}

	client, err := ethclient.Dial(c.urls[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", c.urls[idx])
	}
	c.clients[idx] = client

	return client, nil
}

func (c *RPCClient) setCurrent(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != idx {
		c.logger.Info().Str("url", c.urls[idx]).Msg("Switched active RPC endpoint")
		c.current = idx
	}
}
