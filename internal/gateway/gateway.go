// Package gateway drives a transaction from build through sign, submit and
// confirm. It owns the retry policy and the outcome contract seen by callers;
// the nonce sequencer is the only state shared between lifecycles.
package gateway

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"github/chapool/contract-gateway/internal/chain"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
	"github/chapool/contract-gateway/internal/gateway/nonce"
	"github/chapool/contract-gateway/internal/gateway/signer"
	"github/chapool/contract-gateway/internal/journal"
)

// benignRejections are provider messages meaning the transaction, or one
// with its nonce, is already known. Matched case-insensitively.
var benignRejections = []string{
	"already known",
	"known transaction",
	"transaction already imported",
	"nonce too low",
}

// Gateway runs write lifecycles on a bounded worker pool.
type Gateway struct {
	adapter   chain.Adapter
	signer    signer.Service
	sequencer *nonce.Sequencer
	journal   journal.Store
	recorder  Recorder
	cfg       Config
	pool      pond.Pool
	logger    zerolog.Logger

	chainID  atomic.Pointer[big.Int]
	live     *xsync.MapOf[common.Hash, struct{}] // hashes owned by a running lifecycle
	settleMu sync.Mutex
	closed   atomic.Bool

	// stopCtx is cancelled when Close gives up waiting, which abandons every
	// running lifecycle as timed out.
	stopCtx context.Context
	abandon context.CancelFunc
}

// New creates a Gateway. A nil recorder disables measurements.
func New(
	adapter chain.Adapter,
	signerService signer.Service,
	sequencer *nonce.Sequencer,
	store journal.Store,
	recorder Recorder,
	cfg Config,
	logger zerolog.Logger,
) *Gateway {
	cfg = cfg.withDefaults()
	if recorder == nil {
		recorder = nopRecorder{}
	}

	stopCtx, abandon := context.WithCancel(context.Background())

	g := &Gateway{
		adapter:   adapter,
		signer:    signerService,
		sequencer: sequencer,
		journal:   store,
		recorder:  recorder,
		cfg:       cfg,
		pool:      pond.NewPool(cfg.MaxInFlight),
		logger:    logger.With().Str("component", "gateway").Logger(),
		live:      xsync.NewMapOf[common.Hash, struct{}](),
		stopCtx:   stopCtx,
		abandon:   abandon,
	}

	if cfg.ChainID > 0 {
		g.chainID.Store(big.NewInt(cfg.ChainID))
	}

	sequencer.OnGap(func(common.Address, uint64) {
		g.recorder.NonceGap()
	})

	return g
}

// Execute builds, signs, submits and confirms req with privateKey. Once the
// transaction is signed the returned Outcome is non-nil. The error is nil
// only for StatusConfirmed; a TimedOut error means finality is unknown.
func (g *Gateway) Execute(ctx context.Context, privateKey string, req *Request) (*Outcome, error) {
	if req == nil {
		return nil, gwerr.New(gwerr.KindInvalidInput, "gateway.execute", "request is required")
	}

	return g.schedule(ctx, func(ctx context.Context, logger zerolog.Logger) (*Outcome, error) {
		return g.execute(ctx, logger, privateKey, req)
	})
}

// Close stops accepting lifecycles and waits for the running ones until ctx
// is done. Lifecycles still running then are cancelled: they end TimedOut
// with their nonce held and their record left for the reconciler.
func (g *Gateway) Close(ctx context.Context) error {
	if g.closed.Swap(true) {
		return nil
	}
	defer g.abandon()

	stopped := g.pool.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
	}

	g.logger.Warn().
		Int64("running", g.pool.RunningWorkers()).
		Msg("Shutdown deadline reached, abandoning running lifecycles")

	g.abandon()
	<-stopped.Done()

	return errors.Wrap(ctx.Err(), "running lifecycles were abandoned")
}

// schedule runs fn on the pool. The caller stops waiting for a free slot
// when ctx is done; once fn has started it runs to a terminal state.
func (g *Gateway) schedule(
	ctx context.Context,
	fn func(ctx context.Context, logger zerolog.Logger) (*Outcome, error),
) (*Outcome, error) {
	if g.closed.Load() {
		return nil, gwerr.New(gwerr.KindRejected, "gateway.schedule", "gateway is shutting down")
	}
	if err := ctx.Err(); err != nil {
		return nil, g.refuse(notScheduled(err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	stopAbandon := context.AfterFunc(g.stopCtx, cancel)

	var (
		claimed atomic.Bool
		outcome *Outcome
	)
	task := g.pool.SubmitErr(func() error {
		defer cancel()
		defer stopAbandon()

		if !claimed.CompareAndSwap(false, true) {
			return nil
		}
		if err := runCtx.Err(); err != nil {
			return g.refuse(notScheduled(err))
		}

		logger := g.logger.With().Str("lifecycle_id", uuid.NewString()).Logger()

		g.recorder.InFlight(1)
		defer g.recorder.InFlight(-1)

		var err error
		outcome, err = fn(runCtx, logger)
		return err
	})

	select {
	case <-task.Done():
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return nil, g.refuse(notScheduled(ctx.Err()))
		}
		<-task.Done()
	}

	err := task.Wait()
	switch {
	case errors.Is(err, pond.ErrPoolStopped):
		err = gwerr.New(gwerr.KindRejected, "gateway.schedule", "gateway is shutting down")
	case err != nil && outcome == nil && gwerr.KindOf(err) == gwerr.KindUnknown &&
		(ctx.Err() != nil || g.stopCtx.Err() != nil):
		// cancelled before anything was signed
		err = notScheduled(err)
	}

	return outcome, err
}

func notScheduled(err error) error {
	return gwerr.Wrap(err, gwerr.KindRejected, "gateway.schedule", "request was cancelled before a transaction was signed")
}

func (g *Gateway) execute(ctx context.Context, logger zerolog.Logger, privateKey string, req *Request) (*Outcome, error) {
	started := time.Now()

	from, err := g.signer.Address(ctx, privateKey)
	if err != nil {
		return nil, g.refuse(err)
	}
	logger = logger.With().Str("from", from.Hex()).Logger()

	chainID, err := g.resolveChainID(ctx, logger)
	if err != nil {
		return nil, g.refuse(err)
	}

	unsigned := &signer.Request{
		ChainID:   chainID,
		From:      from,
		To:        req.To,
		Data:      req.Data,
		Value:     req.Value,
		GasLimit:  req.GasLimit,
		GasPrice:  req.GasPrice,
		GasFeeCap: req.GasFeeCap,
		GasTipCap: req.GasTipCap,
	}
	if unsigned.GasLimit == 0 {
		unsigned.GasLimit = g.cfg.DefaultGasLimit
	}
	if unsigned.GasPrice == nil && unsigned.GasFeeCap == nil {
		price, err := g.gasPrice(ctx, logger)
		if err != nil {
			return nil, g.refuse(err)
		}
		unsigned.GasPrice = price
	}

	n, err := g.allocate(ctx, logger, from)
	if err != nil {
		return nil, g.refuse(err)
	}
	unsigned.Nonce = n

	return g.signAndRun(ctx, logger, privateKey, unsigned, lifecycle{deployment: req.To == nil, started: started})
}

// lifecycle carries what run needs to know about how a transaction was built.
type lifecycle struct {
	deployment bool
	reconciled bool // nonce came from the caller through Reconcile
	started    time.Time
}

// signAndRun signs a request whose nonce is already reserved. A signing
// failure releases the nonce as unused.
func (g *Gateway) signAndRun(
	ctx context.Context,
	logger zerolog.Logger,
	privateKey string,
	unsigned *signer.Request,
	lc lifecycle,
) (*Outcome, error) {
	signCtx, cancel := context.WithTimeout(ctx, g.cfg.SignTimeout)
	signed, err := g.signer.Sign(signCtx, unsigned, privateKey)
	cancel()

	if err != nil {
		logger.Warn().Err(err).Uint64("nonce", unsigned.Nonce).Msg("Signing failed, releasing nonce")

		if relErr := g.release(unsigned.From, unsigned.Nonce, lc.reconciled, nonce.Unused); relErr != nil {
			return nil, g.refuse(relErr)
		}

		return nil, g.refuse(err)
	}

	return g.run(ctx, logger, signed, lc)
}

// run takes a signed transaction to a terminal state.
func (g *Gateway) run(
	ctx context.Context,
	logger zerolog.Logger,
	signed *signer.SignedTx,
	lc lifecycle,
) (*Outcome, error) {
	started := lc.started
	logger = logger.With().
		Str("tx_hash", signed.Hash().Hex()).
		Uint64("nonce", signed.Nonce()).
		Logger()

	now := time.Now().UTC()
	rec := &journal.Record{
		Hash:            signed.Hash(),
		From:            signed.From(),
		Nonce:           signed.Nonce(),
		Raw:             signed.Raw(),
		Deployment:      lc.deployment,
		ReconciledNonce: lc.reconciled,
		Status:          journal.StatusSigned,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	g.live.Store(rec.Hash, struct{}{})
	defer g.live.Delete(rec.Hash)

	g.record(ctx, logger, rec)

	broadcast, err := g.submit(ctx, logger, signed)
	rec.Broadcast = broadcast
	if err != nil {
		if ctx.Err() != nil {
			return g.pending(ctx, logger, rec, started, err)
		}
		return g.reject(ctx, logger, rec, started, err)
	}

	logger.Info().Msg("Transaction submitted")

	receipt, err := g.awaitReceipt(ctx, logger, rec.Hash)
	if err != nil {
		return g.pending(ctx, logger, rec, started, err)
	}

	outcome := g.settle(ctx, logger, rec, receipt)
	g.recorder.ObserveOutcome(string(outcome.Status), time.Since(started))

	if outcome.Status == StatusReverted {
		return outcome, gwerr.Newf(gwerr.KindReverted, "gateway.confirm",
			"transaction reverted in block %d", outcome.BlockNumber)
	}

	return outcome, nil
}

// submit broadcasts the signed bytes, retrying ProviderUnavailable with
// backoff. The same bytes are sent on every attempt. It reports whether the
// provider is known to have the transaction.
func (g *Gateway) submit(ctx context.Context, logger zerolog.Logger, signed *signer.SignedTx) (bool, error) {
	raw := signed.Raw()
	broadcast := false

	err := g.withRetry(ctx, logger, "submit", func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.SubmitTimeout)
		defer cancel()

		hash, err := g.adapter.SubmitRaw(attemptCtx, raw)
		if err != nil && ctx.Err() == nil && attemptCtx.Err() != nil {
			err = gwerr.Wrap(err, gwerr.KindProviderUnavailable, "gateway.submit", "submission attempt timed out")
		}

		switch {
		case err == nil:
			g.recorder.SubmitAttempt("accepted")
			if hash != signed.Hash() {
				logger.Warn().
					Str("reported_hash", hash.Hex()).
					Msg("Provider reported a different transaction hash")
			}
			broadcast = true
			return nil
		case isBenignRejection(err):
			g.recorder.SubmitAttempt("duplicate")
			logger.Info().Err(err).Msg("Provider already knows the transaction, polling for receipt")
			broadcast = true
			return nil
		case gwerr.Retryable(err):
			g.recorder.SubmitAttempt("unavailable")
			return err
		default:
			g.recorder.SubmitAttempt("rejected")
			return err
		}
	})

	if err != nil && ctx.Err() == nil {
		return broadcast, gwerr.Wrap(err, gwerr.KindRejected, "gateway.submit", "provider did not accept the transaction")
	}

	return broadcast, err
}

// awaitReceipt polls until a receipt is present or the confirmation
// deadline passes. Polling errors are logged and polled through.
func (g *Gateway) awaitReceipt(ctx context.Context, logger zerolog.Logger, hash common.Hash) (*types.Receipt, error) {
	pollCtx, cancel := context.WithTimeout(ctx, g.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.adapter.GetReceipt(pollCtx, hash)
		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err != nil && pollCtx.Err() == nil:
			logger.Debug().Err(err).Msg("Receipt poll failed")
		}

		select {
		case <-pollCtx.Done():
			return nil, pollCtx.Err()
		case <-ticker.C:
		}
	}
}

// pending reports a transaction whose finality is unknown. The nonce stays
// allocated until the reconciler or a lookup observes a receipt.
func (g *Gateway) pending(
	ctx context.Context,
	logger zerolog.Logger,
	rec *journal.Record,
	started time.Time,
	cause error,
) (*Outcome, error) {
	rec.Status = string(StatusTimedOut)
	rec.UpdatedAt = time.Now().UTC()
	g.record(ctx, logger, rec)

	g.recorder.ObserveOutcome(string(StatusTimedOut), time.Since(started))

	logger.Warn().
		Err(cause).
		Bool("broadcast", rec.Broadcast).
		Msg("Transaction finality unknown, nonce held until settled")

	return recordOutcome(rec), gwerr.Wrap(cause, gwerr.KindTimedOut, "gateway.confirm",
		"no receipt before deadline, check later by hash")
}

// reject ends a lifecycle whose transaction never reached the chain.
func (g *Gateway) reject(
	ctx context.Context,
	logger zerolog.Logger,
	rec *journal.Record,
	started time.Time,
	cause error,
) (*Outcome, error) {
	g.settleMu.Lock()
	defer g.settleMu.Unlock()

	rec.Status = string(StatusRejected)
	rec.Settled = true
	rec.UpdatedAt = time.Now().UTC()
	g.record(ctx, logger, rec)

	g.recorder.ObserveOutcome(string(StatusRejected), time.Since(started))

	logger.Error().Err(cause).Msg("Transaction rejected, releasing nonce")

	if err := g.release(rec.From, rec.Nonce, rec.ReconciledNonce, nonce.Unused); err != nil {
		if gwerr.Is(err, gwerr.KindNonceGapDetected) {
			return recordOutcome(rec), err
		}
		logger.Debug().Err(err).Msg("Nonce was not tracked by this process")
	}

	return recordOutcome(rec), cause
}

// settle finalises a journaled transaction from its receipt and releases
// the nonce. Concurrent callers settle a hash once.
func (g *Gateway) settle(ctx context.Context, logger zerolog.Logger, rec *journal.Record, receipt *types.Receipt) *Outcome {
	g.settleMu.Lock()
	defer g.settleMu.Unlock()

	if stored, err := g.journal.Get(ctx, rec.Hash); err == nil && stored.Settled {
		return recordOutcome(stored)
	}

	rec.Status = string(StatusConfirmed)
	if receipt.Status != types.ReceiptStatusSuccessful {
		rec.Status = string(StatusReverted)
	}
	if receipt.BlockNumber != nil {
		rec.BlockNumber = receipt.BlockNumber.Uint64()
	}
	rec.GasUsed = receipt.GasUsed
	if rec.Deployment && receipt.ContractAddress != (common.Address{}) {
		contract := receipt.ContractAddress
		rec.ContractAddress = &contract
	}
	rec.Settled = true
	rec.UpdatedAt = time.Now().UTC()
	g.record(ctx, logger, rec)

	if err := g.release(rec.From, rec.Nonce, rec.ReconciledNonce, nonce.Consumed); err != nil {
		logger.Debug().Err(err).Msg("Nonce was not tracked by this process")
	}

	event := logger.Info()
	if rec.Status == string(StatusReverted) {
		event = logger.Warn()
	}
	event.
		Str("status", rec.Status).
		Uint64("block_number", rec.BlockNumber).
		Uint64("gas_used", rec.GasUsed).
		Msg("Transaction settled")

	return recordOutcome(rec)
}

// release hands a nonce back to the sequencer through the method matching
// how it was reserved.
func (g *Gateway) release(from common.Address, n uint64, reconciled bool, outcome nonce.Outcome) error {
	if reconciled {
		return g.sequencer.ReleaseReconciled(from, n, outcome)
	}
	return g.sequencer.Release(from, n, outcome)
}

// record writes rec to the journal. A journal failure never fails the
// lifecycle; it only loses the ability to settle the hash after a restart.
func (g *Gateway) record(ctx context.Context, logger zerolog.Logger, rec *journal.Record) {
	if err := g.journal.Put(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error().Err(err).Msg("Failed to journal transaction")
	}
}

// refuse counts a lifecycle that ended before anything was signed.
func (g *Gateway) refuse(err error) error {
	g.recorder.ObserveOutcome(string(StatusRejected), 0)
	return err
}

func (g *Gateway) resolveChainID(ctx context.Context, logger zerolog.Logger) (*big.Int, error) {
	if id := g.chainID.Load(); id != nil {
		return id, nil
	}

	var id *big.Int
	err := g.withRetry(ctx, logger, "chain_id", func(ctx context.Context) error {
		var err error
		id, err = g.adapter.ChainID(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	g.chainID.Store(id)
	return id, nil
}

func (g *Gateway) gasPrice(ctx context.Context, logger zerolog.Logger) (*big.Int, error) {
	var price *big.Int
	err := g.withRetry(ctx, logger, "gas_price", func(ctx context.Context) error {
		var err error
		price, err = g.adapter.SuggestGasPrice(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if g.cfg.GasPriceMultiplier != 100 {
		price = new(big.Int).Div(
			new(big.Int).Mul(price, new(big.Int).SetUint64(g.cfg.GasPriceMultiplier)),
			big.NewInt(100),
		)
	}

	return price, nil
}

func (g *Gateway) allocate(ctx context.Context, logger zerolog.Logger, from common.Address) (uint64, error) {
	var n uint64
	err := g.withRetry(ctx, logger, "allocate_nonce", func(ctx context.Context) error {
		var err error
		n, err = g.sequencer.Allocate(ctx, from)
		return err
	})

	return n, err
}

func (g *Gateway) reconcileNonce(ctx context.Context, logger zerolog.Logger, from common.Address, n uint64) error {
	return g.withRetry(ctx, logger, "reconcile_nonce", func(ctx context.Context) error {
		return g.sequencer.Reconcile(ctx, from, n)
	})
}

func isBenignRejection(err error) bool {
	if !gwerr.Is(err, gwerr.KindProviderRejected) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, signature := range benignRejections {
		if strings.Contains(msg, signature) {
			return true
		}
	}

	return false
}

func recordOutcome(rec *journal.Record) *Outcome {
	outcome := &Outcome{
		Hash:        rec.Hash,
		Status:      Status(rec.Status),
		From:        rec.From,
		Nonce:       rec.Nonce,
		BlockNumber: rec.BlockNumber,
		GasUsed:     rec.GasUsed,
	}
	if rec.ContractAddress != nil {
		contract := *rec.ContractAddress
		outcome.ContractAddress = &contract
	}

	return outcome
}
