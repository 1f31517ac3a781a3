package gateway_test

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
	"github/chapool/contract-gateway/internal/journal"
	"github/chapool/contract-gateway/internal/test"
)

var target = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func writeRequest() *gateway.Request {
	return &gateway.Request{To: &target, Data: []byte{0xde, 0xad, 0xbe, 0xef}}
}

func TestExecuteConfirmed(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())

	outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, gateway.StatusConfirmed, outcome.Status)
	assert.Equal(t, gwerr.FinalitySucceeded, outcome.Finality())
	assert.Equal(t, test.Address, outcome.From)
	assert.Equal(t, uint64(0), outcome.Nonce)
	assert.Equal(t, uint64(101), outcome.BlockNumber)
	assert.Nil(t, outcome.ContractAddress)

	submitted := fx.Chain.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, outcome.Hash, submitted[0].Hash())
	assert.Equal(t, uint64(100_000), submitted[0].Gas())
	assert.Equal(t, big.NewInt(1_000_000_000), submitted[0].GasPrice())

	state := fx.Sequencer.State(test.Address)
	assert.Equal(t, uint64(1), state.Next)
	assert.Empty(t, state.InFlight)

	rec, err := fx.Journal.Get(t.Context(), outcome.Hash)
	require.NoError(t, err)
	assert.True(t, rec.Settled)
	assert.Equal(t, "confirmed", rec.Status)
}

func TestExecuteDeployment(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	fx.Chain.SetNonce(test.Address, 3)

	outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, &gateway.Request{
		Data:     common.FromHex("0x6080604052"),
		GasLimit: 1_500_000,
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.ContractAddress)
	assert.Equal(t, crypto.CreateAddress(test.Address, 3), *outcome.ContractAddress)
	assert.Equal(t, uint64(1_500_000), fx.Chain.Submitted()[0].Gas())
}

func TestExecuteDynamicFee(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())

	req := writeRequest()
	req.GasFeeCap = big.NewInt(3_000_000_000)
	req.GasTipCap = big.NewInt(1_000_000_000)

	_, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, req)
	require.NoError(t, err)

	tx := fx.Chain.Submitted()[0]
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, req.GasFeeCap, tx.GasFeeCap())
}

func TestConcurrentWritesShareOneSequence(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	fx.Chain.SetNonce(test.Address, 5)

	const writers = 12

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		nonces []uint64
	)

	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			outcome, err := fx.Gateway.Execute(context.Background(), test.PrivateKey, writeRequest())
			assert.NoError(t, err)
			if outcome != nil {
				mu.Lock()
				nonces = append(nonces, outcome.Nonce)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
	require.Len(t, nonces, writers)
	for i, n := range nonces {
		assert.Equal(t, uint64(5+i), n)
	}

	assert.Equal(t, int64(1), fx.Chain.NonceCalls.Load(), "the account is seeded once")
	assert.Equal(t, uint64(5+writers), fx.Sequencer.State(test.Address).Next)
}

func TestTwoConcurrentWritesGetFiveAndSix(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	fx.Chain.SetNonce(test.Address, 5)

	results := make(chan *gateway.Outcome, 2)
	for range 2 {
		go func() {
			outcome, err := fx.Gateway.Execute(context.Background(), test.PrivateKey, writeRequest())
			assert.NoError(t, err)
			results <- outcome
		}()
	}

	first, second := <-results, <-results
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.ElementsMatch(t, []uint64{5, 6}, []uint64{first.Nonce, second.Nonce})
}

func TestAlreadyKnownProceedsToConfirmed(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())

	// The first attempt reaches the node but its response is lost; the
	// resubmission of the same bytes is answered with "already known".
	fx.Chain.OnSubmit(func(n int, tx *types.Transaction) error {
		if n == 1 {
			fx.Chain.Accept(tx)
			return test.Unavailable("connection reset by peer")
		}
		return nil
	})

	outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusConfirmed, outcome.Status)
	assert.Equal(t, int64(2), fx.Chain.SubmitCalls.Load())
	assert.Len(t, fx.Chain.Submitted(), 1)
}

func TestBenignRejectionSignatures(t *testing.T) {
	for _, msg := range []string{"already known", "Known transaction: 0xabc", "nonce too low: next nonce 4, tx nonce 3", "transaction already imported"} {
		t.Run(msg, func(t *testing.T) {
			fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
			fx.Chain.OnSubmit(func(_ int, tx *types.Transaction) error {
				fx.Chain.Accept(tx)
				return test.Rejected(msg)
			})

			outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
			require.NoError(t, err)
			assert.Equal(t, gateway.StatusConfirmed, outcome.Status)
		})
	}
}

func TestUnavailableIsRetriedWithTheSameBytes(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())

	var (
		mu   sync.Mutex
		seen []common.Hash
	)
	fx.Chain.OnSubmit(func(n int, tx *types.Transaction) error {
		mu.Lock()
		seen = append(seen, tx.Hash())
		mu.Unlock()
		if n < 3 {
			return test.Unavailable("503 service unavailable")
		}
		return nil
	})

	outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusConfirmed, outcome.Status)

	require.Len(t, seen, 3)
	assert.Equal(t, seen[0], seen[1])
	assert.Equal(t, seen[0], seen[2])
}

func TestUnavailableExhaustedIsRejected(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	fx.Chain.OnSubmit(func(int, *types.Transaction) error {
		return test.Unavailable("dial tcp: connection refused")
	})

	outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindRejected))
	assert.Equal(t, gwerr.FinalityFailed, gwerr.FinalityOf(err))

	require.NotNil(t, outcome)
	assert.Equal(t, gateway.StatusRejected, outcome.Status)
	assert.Equal(t, int64(3), fx.Chain.SubmitCalls.Load())

	// the nonce was never used and is handed out again
	assert.Equal(t, uint64(0), fx.Sequencer.State(test.Address).Next)
}

func TestNonBenignRejection(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	fx.Chain.OnSubmit(func(int, *types.Transaction) error {
		return test.Rejected("insufficient funds for gas * price + value")
	})

	outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindRejected))
	assert.Contains(t, err.Error(), "insufficient funds")
	assert.Equal(t, gateway.StatusRejected, outcome.Status)
	assert.Equal(t, int64(1), fx.Chain.SubmitCalls.Load(), "rejections are not retried")

	rec, err := fx.Journal.Get(t.Context(), outcome.Hash)
	require.NoError(t, err)
	assert.True(t, rec.Settled)

	outcome, err = fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.Equal(t, uint64(0), outcome.Nonce, "rolled back nonce is reused")
}

func TestReverted(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	fx.Chain.SetRevert(true)

	outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindReverted))
	assert.Equal(t, gateway.StatusReverted, outcome.Status)
	assert.Equal(t, uint64(101), outcome.BlockNumber)

	// a revert consumes the nonce
	state := fx.Sequencer.State(test.Address)
	assert.Equal(t, uint64(1), state.Next)
	assert.Empty(t, state.InFlight)
}

func TestInvalidKeyLeavesSequenceUnchanged(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())

	_, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.NoError(t, err)
	before := fx.Sequencer.State(test.Address)

	for _, key := range []string{"not-a-key", "0x1234", "0x" + "00000000000000000000000000000000000000000000000000000000000000zz"} {
		outcome, err := fx.Gateway.Execute(t.Context(), key, &gateway.Request{Data: []byte{0x60}})
		require.Error(t, err)
		assert.Nil(t, outcome)
		assert.True(t, gwerr.Is(err, gwerr.KindInvalidKey), err.Error())
	}

	assert.Equal(t, before, fx.Sequencer.State(test.Address))
	assert.Equal(t, int64(1), fx.Chain.SubmitCalls.Load())
}

func TestTimedOutHoldsNonceUntilSettled(t *testing.T) {
	cfg := test.FastGatewayConfig()
	cfg.ConfirmTimeout = 50 * time.Millisecond

	fx := test.NewGatewayFixture(t, cfg)
	fx.Chain.SetAutoMine(false)

	outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindTimedOut))
	assert.Equal(t, gwerr.FinalityUnknown, gwerr.FinalityOf(err))
	require.NotNil(t, outcome)
	assert.Equal(t, gateway.StatusTimedOut, outcome.Status)
	assert.Equal(t, gwerr.FinalityUnknown, outcome.Finality())

	assert.Equal(t, []uint64{0}, fx.Sequencer.State(test.Address).InFlight)

	pending, err := fx.Journal.Pending(t.Context())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, outcome.Hash, pending[0].Hash)

	// nothing to settle yet
	settled, err := fx.Gateway.ReconcilePending(t.Context())
	require.NoError(t, err)
	assert.Zero(t, settled)

	fx.Chain.Mine(outcome.Hash, true)

	settled, err = fx.Gateway.ReconcilePending(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	assert.Empty(t, fx.Sequencer.State(test.Address).InFlight)

	looked, err := fx.Gateway.Lookup(t.Context(), outcome.Hash)
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusConfirmed, looked.Status)

	// a second pass does not release again
	settled, err = fx.Gateway.ReconcilePending(t.Context())
	require.NoError(t, err)
	assert.Zero(t, settled)
}

func TestLookupSettlesTimedOut(t *testing.T) {
	cfg := test.FastGatewayConfig()
	cfg.ConfirmTimeout = 30 * time.Millisecond

	fx := test.NewGatewayFixture(t, cfg)
	fx.Chain.SetAutoMine(false)

	outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)

	looked, err := fx.Gateway.Lookup(t.Context(), outcome.Hash)
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusTimedOut, looked.Status)

	fx.Chain.Mine(outcome.Hash, false)

	looked, err = fx.Gateway.Lookup(t.Context(), outcome.Hash)
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusReverted, looked.Status)
	assert.Empty(t, fx.Sequencer.State(test.Address).InFlight)
}

func TestLookupUnknownHash(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())

	_, err := fx.Gateway.Lookup(t.Context(), common.HexToHash("0x1234"))
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindNotFound))
}

func TestCancelDuringPollingReportsTimedOut(t *testing.T) {
	cfg := test.FastGatewayConfig()
	cfg.ConfirmTimeout = time.Minute

	fx := test.NewGatewayFixture(t, cfg)
	fx.Chain.SetAutoMine(false)

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		assert.Eventually(t, func() bool {
			return len(fx.Chain.Submitted()) == 1
		}, time.Second, time.Millisecond)
		cancel()
	}()

	outcome, err := fx.Gateway.Execute(ctx, test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindTimedOut))
	assert.Equal(t, gateway.StatusTimedOut, outcome.Status)
	assert.Equal(t, []uint64{0}, fx.Sequencer.State(test.Address).InFlight)
}

func TestRejectionBelowAllocatedNonceIsAGap(t *testing.T) {
	cfg := test.FastGatewayConfig()
	cfg.ConfirmTimeout = 100 * time.Millisecond

	fx := test.NewGatewayFixture(t, cfg)
	fx.Chain.SetAutoMine(false)

	laterSubmitted := make(chan struct{})
	fx.Chain.OnSubmit(func(_ int, tx *types.Transaction) error {
		if tx.Nonce() == 0 {
			<-laterSubmitted
			return test.Rejected("insufficient funds")
		}
		close(laterSubmitted)
		return nil
	})

	type result struct {
		outcome *gateway.Outcome
		err     error
	}
	first := make(chan result, 1)
	go func() {
		outcome, err := fx.Gateway.Execute(context.Background(), test.PrivateKey, writeRequest())
		first <- result{outcome, err}
	}()

	require.Eventually(t, func() bool {
		return fx.Chain.SubmitCalls.Load() == 1
	}, time.Second, time.Millisecond)

	second, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.Equal(t, uint64(1), second.Nonce)

	res := <-first
	require.Error(t, res.err)
	assert.True(t, gwerr.Is(res.err, gwerr.KindNonceGapDetected), res.err.Error())
	assert.Equal(t, gateway.StatusRejected, res.outcome.Status)
	assert.Equal(t, []uint64{0}, fx.Sequencer.State(test.Address).Gaps)

	_, err = fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindNonceGapDetected))
}

func TestReconcileRebroadcastsUnsentTransaction(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())

	// A lifecycle cancelled before its first submission leaves an unsent
	// journal record behind.
	ctx, cancel := context.WithCancel(t.Context())
	fx.Chain.OnSubmit(func(int, *types.Transaction) error {
		cancel()
		return test.Unavailable("context canceled")
	})

	outcome, err := fx.Gateway.Execute(ctx, test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindTimedOut))

	rec, err := fx.Journal.Get(t.Context(), outcome.Hash)
	require.NoError(t, err)
	assert.False(t, rec.Broadcast)

	fx.Chain.OnSubmit(nil)

	settled, err := fx.Gateway.ReconcilePending(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	submitted := fx.Chain.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, outcome.Hash, submitted[0].Hash())
	assert.Empty(t, fx.Sequencer.State(test.Address).InFlight)
}

func TestRunReconcilerStopsWithContext(t *testing.T) {
	cfg := test.FastGatewayConfig()
	cfg.ConfirmTimeout = 20 * time.Millisecond

	fx := test.NewGatewayFixture(t, cfg)
	fx.Chain.SetAutoMine(false)

	outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		fx.Gateway.RunReconciler(ctx)
		close(done)
	}()

	fx.Chain.Mine(outcome.Hash, true)

	require.Eventually(t, func() bool {
		rec, err := fx.Journal.Get(t.Context(), outcome.Hash)
		return err == nil && rec.Settled
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestClosedGatewayRefusesWork(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	require.NoError(t, fx.Gateway.Close(t.Context()))

	_, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindRejected))
}

func TestOutOfOrderReceiptsSettleBoth(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	fx.Chain.SetNonce(test.Address, 5)
	fx.Chain.SetAutoMine(false)

	type result struct {
		outcome *gateway.Outcome
		err     error
	}
	results := make(chan result, 2)
	for range 2 {
		go func() {
			outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
			results <- result{outcome, err}
		}()
	}

	require.Eventually(t, func() bool {
		return len(fx.Chain.Submitted()) == 2
	}, time.Second, time.Millisecond)

	byNonce := map[uint64]common.Hash{}
	for _, tx := range fx.Chain.Submitted() {
		byNonce[tx.Nonce()] = tx.Hash()
	}
	require.Contains(t, byNonce, uint64(5))
	require.Contains(t, byNonce, uint64(6))

	fx.Chain.Mine(byNonce[6], true)
	time.Sleep(20 * time.Millisecond)
	fx.Chain.Mine(byNonce[5], true)

	for range 2 {
		res := <-results
		require.NoError(t, res.err)
		assert.Equal(t, gateway.StatusConfirmed, res.outcome.Status)
	}

	state := fx.Sequencer.State(test.Address)
	assert.Equal(t, uint64(7), state.Next)
	assert.Empty(t, state.InFlight)
	assert.Empty(t, state.Gaps)
}

func TestCancelWhileWaitingForSlotIsRejected(t *testing.T) {
	cfg := test.FastGatewayConfig()
	cfg.MaxInFlight = 1

	fx := test.NewGatewayFixture(t, cfg)
	fx.Chain.SetAutoMine(false)

	first := make(chan *gateway.Outcome, 1)
	go func() {
		outcome, _ := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
		first <- outcome
	}()

	require.Eventually(t, func() bool {
		return len(fx.Chain.Submitted()) == 1
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	outcome, err := fx.Gateway.Execute(ctx, test.PrivateKey, writeRequest())
	elapsed := time.Since(started)

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.True(t, gwerr.Is(err, gwerr.KindRejected), err.Error())
	assert.Equal(t, gwerr.FinalityFailed, gwerr.FinalityOf(err))
	assert.Less(t, elapsed, 500*time.Millisecond)

	fx.Chain.Mine(fx.Chain.Submitted()[0].Hash(), true)
	assert.Equal(t, gateway.StatusConfirmed, (<-first).Status)

	// the refused request never reserved a nonce
	assert.Len(t, fx.Chain.Submitted(), 1)
	assert.Equal(t, uint64(1), fx.Sequencer.State(test.Address).Next)
}

func TestCloseAbandonsLifecyclesAtDeadline(t *testing.T) {
	cfg := test.FastGatewayConfig()
	cfg.ConfirmTimeout = time.Minute

	fx := test.NewGatewayFixture(t, cfg)
	fx.Chain.SetAutoMine(false)

	type result struct {
		outcome *gateway.Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
		done <- result{outcome, err}
	}()

	require.Eventually(t, func() bool {
		return len(fx.Chain.Submitted()) == 1
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := fx.Gateway.Close(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(started), time.Second)

	res := <-done
	require.Error(t, res.err)
	assert.True(t, gwerr.Is(res.err, gwerr.KindTimedOut), res.err.Error())
	require.NotNil(t, res.outcome)
	assert.Equal(t, gateway.StatusTimedOut, res.outcome.Status)

	// the abandoned nonce stays held and its record is left for the reconciler
	assert.Equal(t, []uint64{0}, fx.Sequencer.State(test.Address).InFlight)

	pending, err := fx.Journal.Pending(t.Context())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, res.outcome.Hash, pending[0].Hash)
}

// staleJournal serves a fixed listing from Pending, as if the listing was
// taken just before the listed records changed.
type staleJournal struct {
	journal.Store

	mu      sync.Mutex
	listing []*journal.Record
}

func (s *staleJournal) Pending(ctx context.Context) ([]*journal.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listing != nil {
		return s.listing, nil
	}
	return s.Store.Pending(ctx)
}

func TestReconcileSkipsRecordsSettledAfterListing(t *testing.T) {
	store := &staleJournal{Store: journal.NewMemoryStore()}
	fx := test.NewGatewayFixtureWithJournal(t, test.FastGatewayConfig(), store)

	fx.Chain.OnSubmit(func(n int, _ *types.Transaction) error {
		if n == 1 {
			return test.Rejected("insufficient funds for gas * price + value")
		}
		return nil
	})

	rejected, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	require.Error(t, err)
	assert.Equal(t, gateway.StatusRejected, rejected.Status)

	// the released nonce is reused by a different transaction
	reused, err := fx.Gateway.Execute(t.Context(), test.PrivateKey, &gateway.Request{To: &target, Data: []byte{0x01}})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), reused.Nonce)
	require.NotEqual(t, rejected.Hash, reused.Hash)

	rec, err := store.Get(t.Context(), rejected.Hash)
	require.NoError(t, err)
	rec.Settled = false
	rec.Status = string(gateway.StatusTimedOut)
	rec.Broadcast = false

	store.mu.Lock()
	store.listing = []*journal.Record{rec}
	store.mu.Unlock()

	settled, err := fx.Gateway.ReconcilePending(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, settled)

	submitted := fx.Chain.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, reused.Hash, submitted[0].Hash())

	stored, err := store.Get(t.Context(), rejected.Hash)
	require.NoError(t, err)
	assert.True(t, stored.Settled)
	assert.Equal(t, string(gateway.StatusRejected), stored.Status)

	state := fx.Sequencer.State(test.Address)
	assert.Equal(t, uint64(1), state.Next)
	assert.Empty(t, state.InFlight)
	assert.Empty(t, state.Gaps)
}

func TestReconcileIgnoresRecordsOfRunningLifecycles(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	fx.Chain.SetAutoMine(false)

	release := make(chan struct{})
	fx.Chain.OnSubmit(func(int, *types.Transaction) error {
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = fx.Gateway.Execute(t.Context(), test.PrivateKey, writeRequest())
	}()

	require.Eventually(t, func() bool {
		return fx.Chain.SubmitCalls.Load() == 1
	}, time.Second, time.Millisecond)

	settled, err := fx.Gateway.ReconcilePending(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, settled)
	assert.Equal(t, int64(1), fx.Chain.SubmitCalls.Load())

	close(release)
	fx.Chain.OnSubmit(nil)

	require.Eventually(t, func() bool {
		return len(fx.Chain.Submitted()) == 1
	}, time.Second, time.Millisecond)
	fx.Chain.Mine(fx.Chain.Submitted()[0].Hash(), true)
	<-done
}
