package test

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/contract-gateway/internal/chain"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

// Deterministic development account (first Hardhat/Anvil account).
const (
	PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	// SecondPrivateKey is the second Hardhat/Anvil account.
	SecondPrivateKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

var (
	Address       = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	SecondAddress = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// SubmitFunc decides the fate of the n-th (one based) submission. A nil
// error accepts the transaction.
type SubmitFunc func(n int, tx *types.Transaction) error

// FakeChain is a scripted in-memory chain.Adapter. Accepted transactions are
// mined immediately unless AutoMine is switched off.
type FakeChain struct {
	mu sync.Mutex

	chainID  *big.Int
	gasPrice *big.Int
	head     uint64
	nonces   map[common.Address]uint64
	autoMine bool
	revert   bool

	submitFn  SubmitFunc
	callFn    func(call chain.CallRequest) ([]byte, error)
	nonceErr  error
	chainErr  error
	receiptFn func(hash common.Hash) error

	submitted []*types.Transaction
	receipts  map[common.Hash]*types.Receipt
	logs      []types.Log

	NonceCalls   atomic.Int64
	SubmitCalls  atomic.Int64
	ReceiptCalls atomic.Int64
	CallCalls    atomic.Int64
	LogCalls     atomic.Int64
}

var _ chain.Adapter = (*FakeChain)(nil)

// NewFakeChain returns a chain with id 1337, a 1 gwei gas price and head 100.
func NewFakeChain() *FakeChain {
	return &FakeChain{
		chainID:  big.NewInt(1337),
		gasPrice: big.NewInt(1_000_000_000),
		head:     100,
		nonces:   make(map[common.Address]uint64),
		autoMine: true,
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

// SetNonce sets the on-chain nonce reported for address.
func (f *FakeChain) SetNonce(address common.Address, nonce uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonces[address] = nonce
}

// SetAutoMine controls whether accepted transactions get a receipt at once.
func (f *FakeChain) SetAutoMine(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoMine = enabled
}

// SetRevert makes auto-mined receipts report failure.
func (f *FakeChain) SetRevert(revert bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revert = revert
}

// SetHead sets the latest block number.
func (f *FakeChain) SetHead(head uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = head
}

// OnSubmit scripts submission results.
func (f *FakeChain) OnSubmit(fn SubmitFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitFn = fn
}

// OnCall scripts eth_call results.
func (f *FakeChain) OnCall(fn func(call chain.CallRequest) ([]byte, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callFn = fn
}

// OnReceipt injects receipt lookup failures. A nil error proceeds normally.
func (f *FakeChain) OnReceipt(fn func(hash common.Hash) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptFn = fn
}

// FailNonce makes GetNonce return err.
func (f *FakeChain) FailNonce(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonceErr = err
}

// FailChainID makes ChainID return err.
func (f *FakeChain) FailChainID(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainErr = err
}

// AddLogs appends logs returned by GetLogs.
func (f *FakeChain) AddLogs(logs ...types.Log) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, logs...)
}

// Submitted returns the accepted transactions in submission order.
func (f *FakeChain) Submitted() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.submitted...)
}

// Accept records tx as received by the node without going through
// OnSubmit, as if an earlier attempt had landed before its response was lost.
func (f *FakeChain) Accept(tx *types.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted = append(f.submitted, tx)
	if f.autoMine {
		f.mineLocked(tx, !f.revert)
	}
}

// Mine creates a receipt for an accepted transaction.
func (f *FakeChain) Mine(hash common.Hash, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, tx := range f.submitted {
		if tx.Hash() == hash {
			f.mineLocked(tx, success)
			return
		}
	}
}

func (f *FakeChain) ChainID(_ context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.chainErr != nil {
		return nil, f.chainErr
	}

	return new(big.Int).Set(f.chainID), nil
}

func (f *FakeChain) GetNonce(_ context.Context, address common.Address) (uint64, error) {
	f.NonceCalls.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.nonceErr != nil {
		return 0, f.nonceErr
	}
	return f.nonces[address], nil
}

func (f *FakeChain) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *FakeChain) SubmitRaw(ctx context.Context, raw []byte) (common.Hash, error) {
	n := int(f.SubmitCalls.Add(1))

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, gwerr.Wrap(err, gwerr.KindProviderRejected, "chain.submitRaw", "invalid transaction")
	}

	f.mu.Lock()
	submitFn := f.submitFn
	f.mu.Unlock()

	if submitFn != nil {
		if err := submitFn(n, tx); err != nil {
			return common.Hash{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return common.Hash{}, errors.Wrap(err, "chain.submitRaw")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, known := range f.submitted {
		if known.Hash() == tx.Hash() {
			return common.Hash{}, gwerr.Wrap(errors.New("already known"), gwerr.KindProviderRejected, "chain.submitRaw", "")
		}
	}

	f.submitted = append(f.submitted, tx)
	if f.autoMine {
		f.mineLocked(tx, !f.revert)
	}

	return tx.Hash(), nil
}

func (f *FakeChain) mineLocked(tx *types.Transaction, success bool) {
	f.head++

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     21_000,
		BlockNumber: new(big.Int).SetUint64(f.head),
	}
	if !success {
		receipt.Status = types.ReceiptStatusFailed
	}

	from, err := types.Sender(types.LatestSignerForChainID(f.chainID), tx)
	if err == nil {
		if tx.Nonce() >= f.nonces[from] {
			f.nonces[from] = tx.Nonce() + 1
		}
		if tx.To() == nil {
			receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
		}
	}

	f.receipts[tx.Hash()] = receipt
}

func (f *FakeChain) GetReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.ReceiptCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "chain.getReceipt")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.receiptFn != nil {
		if err := f.receiptFn(hash); err != nil {
			return nil, err
		}
	}

	receipt, ok := f.receipts[hash]
	if !ok {
		return nil, nil
	}
	cp := *receipt
	return &cp, nil
}

func (f *FakeChain) GetLogs(_ context.Context, query chain.LogQuery) ([]types.Log, error) {
	f.LogCalls.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.Log
	for _, l := range f.logs {
		if l.Address != query.Address || len(l.Topics) == 0 || l.Topics[0] != query.EventID {
			continue
		}
		if l.BlockNumber < query.FromBlock || l.BlockNumber > query.ToBlock {
			continue
		}
		out = append(out, l)
	}

	return out, nil
}

func (f *FakeChain) Call(_ context.Context, call chain.CallRequest) ([]byte, error) {
	f.CallCalls.Add(1)

	f.mu.Lock()
	callFn := f.callFn
	f.mu.Unlock()

	if callFn == nil {
		return nil, nil
	}
	return callFn(call)
}

func (f *FakeChain) LatestBlock(_ context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *FakeChain) BalanceAt(_ context.Context, _ common.Address) (*big.Int, error) {
	return new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1e18)), nil
}

// Unavailable returns a transient provider error.
func Unavailable(msg string) error {
	return gwerr.Wrap(errors.New(msg), gwerr.KindProviderUnavailable, "chain.fake", "")
}

// Rejected returns a provider rejection carrying msg.
func Rejected(msg string) error {
	return gwerr.Wrap(errors.New(msg), gwerr.KindProviderRejected, "chain.fake", "")
}
