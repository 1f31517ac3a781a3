package gateway

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
	"github/chapool/contract-gateway/internal/gateway/nonce"
	"github/chapool/contract-gateway/internal/journal"
)

var errSettledElsewhere = errors.New("transaction was settled elsewhere")

// Lookup reports what is known about hash. A journaled transaction that is
// still unsettled is checked against the provider and settled when its
// receipt has appeared. Hashes the gateway never sent are answered from the
// receipt alone.
func (g *Gateway) Lookup(ctx context.Context, hash common.Hash) (*Outcome, error) {
	logger := g.logger.With().Str("tx_hash", hash.Hex()).Logger()

	rec, err := g.journal.Get(ctx, hash)
	if errors.Is(err, journal.ErrNotFound) {
		return g.lookupReceipt(ctx, hash)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read journal")
	}

	if rec.Settled {
		return recordOutcome(rec), nil
	}

	if _, running := g.live.Load(hash); running {
		outcome := recordOutcome(rec)
		outcome.Status = StatusPending
		return outcome, nil
	}

	receipt, err := g.adapter.GetReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return recordOutcome(rec), nil
	}

	return g.settle(ctx, logger, rec, receipt), nil
}

func (g *Gateway) lookupReceipt(ctx context.Context, hash common.Hash) (*Outcome, error) {
	receipt, err := g.adapter.GetReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, gwerr.Newf(gwerr.KindNotFound, "gateway.lookup", "transaction %s is unknown", hash.Hex())
	}

	outcome := &Outcome{
		Hash:    hash,
		Status:  StatusConfirmed,
		GasUsed: receipt.GasUsed,
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		outcome.Status = StatusReverted
	}
	if receipt.BlockNumber != nil {
		outcome.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.ContractAddress != (common.Address{}) {
		contract := receipt.ContractAddress
		outcome.ContractAddress = &contract
	}

	return outcome, nil
}

// ReconcilePending makes one pass over the unsettled journal. Transactions
// that never reached the provider are broadcast again with their original
// bytes; those with a receipt are settled and their nonce released. It
// returns how many transactions were settled.
func (g *Gateway) ReconcilePending(ctx context.Context) (int, error) {
	pending, err := g.journal.Pending(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list pending transactions")
	}

	settled := 0
	for _, listed := range pending {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}

		rec, ok := g.unsettled(ctx, listed.Hash)
		if !ok {
			continue
		}

		logger := g.logger.With().
			Str("tx_hash", rec.Hash.Hex()).
			Str("from", rec.From.Hex()).
			Uint64("nonce", rec.Nonce).
			Logger()

		if !rec.Broadcast {
			done, err := g.rebroadcast(ctx, logger, rec)
			if errors.Is(err, errSettledElsewhere) {
				logger.Debug().Msg("Pending transaction settled elsewhere during rebroadcast")
				continue
			}
			if err != nil {
				logger.Warn().Err(err).Msg("Failed to rebroadcast pending transaction")
				continue
			}
			if done {
				settled++
				continue
			}
		}

		receipt, err := g.adapter.GetReceipt(ctx, rec.Hash)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to check pending transaction")
			continue
		}
		if receipt == nil {
			continue
		}

		g.settle(ctx, logger, rec, receipt)
		settled++
	}

	return settled, nil
}

// unsettled re-reads hash from the journal and reports whether the
// reconciler may act on it. A listed record may have been settled or picked
// up by a lifecycle since the listing was taken.
func (g *Gateway) unsettled(ctx context.Context, hash common.Hash) (*journal.Record, bool) {
	g.settleMu.Lock()
	defer g.settleMu.Unlock()

	return g.unsettledLocked(ctx, hash)
}

// unsettledLocked is unsettled for callers holding settleMu.
func (g *Gateway) unsettledLocked(ctx context.Context, hash common.Hash) (*journal.Record, bool) {
	if _, running := g.live.Load(hash); running {
		return nil, false
	}

	rec, err := g.journal.Get(ctx, hash)
	if err != nil || rec.Settled || rec.Status == journal.StatusSigned {
		return nil, false
	}

	return rec, true
}

// rebroadcast sends the journaled bytes again. It reports true when the
// provider rejected them for good and the record was settled as rejected.
func (g *Gateway) rebroadcast(ctx context.Context, logger zerolog.Logger, rec *journal.Record) (bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.SubmitTimeout)
	defer cancel()

	_, err := g.adapter.SubmitRaw(attemptCtx, rec.Raw)
	switch {
	case err == nil || isBenignRejection(err):
		g.recorder.SubmitAttempt("accepted")
	case gwerr.Retryable(err) || ctx.Err() != nil:
		g.recorder.SubmitAttempt("unavailable")
		return false, err
	default:
		g.recorder.SubmitAttempt("rejected")
	}

	g.settleMu.Lock()
	defer g.settleMu.Unlock()

	current, ok := g.unsettledLocked(ctx, rec.Hash)
	if !ok {
		return false, errSettledElsewhere
	}
	*rec = *current

	if err == nil || isBenignRejection(err) {
		rec.Broadcast = true
		rec.UpdatedAt = time.Now().UTC()
		g.record(ctx, logger, rec)
		logger.Info().Msg("Pending transaction rebroadcast")
		return false, nil
	}

	rec.Status = string(StatusRejected)
	rec.Settled = true
	rec.UpdatedAt = time.Now().UTC()
	g.record(ctx, logger, rec)

	logger.Error().Err(err).Msg("Pending transaction rejected on rebroadcast, releasing nonce")

	if relErr := g.release(rec.From, rec.Nonce, rec.ReconciledNonce, nonce.Unused); relErr != nil {
		logger.Debug().Err(relErr).Msg("Nonce release after rebroadcast rejection")
	}

	return true, nil
}

// RunReconciler reconciles the journal every ReconcileInterval until ctx is
// done.
func (g *Gateway) RunReconciler(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.ReconcileInterval)
	defer ticker.Stop()

	g.logger.Info().Dur("interval", g.cfg.ReconcileInterval).Msg("Starting transaction reconciler")

	for {
		select {
		case <-ctx.Done():
			g.logger.Info().Msg("Transaction reconciler stopped")
			return
		case <-ticker.C:
			settled, err := g.ReconcilePending(ctx)
			if err != nil && ctx.Err() == nil {
				g.logger.Error().Err(err).Msg("Reconcile pass failed")
				continue
			}
			if settled > 0 {
				g.logger.Info().Int("settled", settled).Msg("Reconciled pending transactions")
			}
		}
	}
}
