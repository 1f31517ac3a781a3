// Package nonce allocates per-account transaction nonces. Each account has a
// high-water mark seeded once from the provider and advanced locally after
// that, so concurrent writers on one account never collide or skip.
package nonce

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

// Source reports an account's next nonce as seen by the provider.
type Source interface {
	GetNonce(ctx context.Context, address common.Address) (uint64, error)
}

// Outcome tells Release whether the nonce was spent on chain.
type Outcome uint8

const (
	// Consumed means a transaction with this nonce was included (confirmed or reverted).
	Consumed Outcome = iota
	// Unused means the transaction never reached the chain and the nonce is free again.
	Unused
)

// State is a snapshot of one account's sequence.
type State struct {
	Seeded   bool
	Next     uint64
	InFlight []uint64
	Gaps     []uint64
}

type account struct {
	mu       sync.Mutex
	retired  bool // set by Reset; holders must look the account up again
	seeded   bool
	next     uint64
	inflight map[uint64]*hold
	gaps     map[uint64]struct{}
}

// hold tracks who reserved an in-flight nonce. Reconciled raw payloads may
// share a nonce with an allocation or with each other.
type hold struct {
	allocated  int
	reconciled int
	consumed   bool
	// advanced is set when reserving the nonce moved the high-water mark;
	// from is the mark before that move.
	advanced bool
	from     uint64
}

func (h *hold) holders() int {
	return h.allocated + h.reconciled
}

// Sequencer is safe for concurrent use. Allocation for one account is a
// single critical section; different accounts never contend.
type Sequencer struct {
	source   Source
	accounts *xsync.MapOf[common.Address, *account]
	onGap    func(address common.Address, nonce uint64)
	logger   zerolog.Logger
}

// NewSequencer creates a sequencer seeding accounts from source.
func NewSequencer(source Source, logger zerolog.Logger) *Sequencer {
	return &Sequencer{
		source:   source,
		accounts: xsync.NewMapOf[common.Address, *account](),
		logger:   logger.With().Str("component", "nonce_sequencer").Logger(),
	}
}

// OnGap registers a callback invoked whenever a nonce gap is recorded.
func (s *Sequencer) OnGap(fn func(address common.Address, nonce uint64)) {
	s.onGap = fn
}

// lock returns the live account of address with its mutex held.
func (s *Sequencer) lock(address common.Address) *account {
	for {
		acct, _ := s.accounts.LoadOrCompute(address, func() *account {
			return &account{
				inflight: make(map[uint64]*hold),
				gaps:     make(map[uint64]struct{}),
			}
		})

		acct.mu.Lock()
		if !acct.retired {
			return acct
		}
		acct.mu.Unlock()
	}
}

// seed loads the on-chain nonce the first time an account is used. Callers
// hold acct.mu.
func (s *Sequencer) seed(ctx context.Context, address common.Address, acct *account) error {
	if acct.seeded {
		return nil
	}

	onChain, err := s.source.GetNonce(ctx, address)
	if err != nil {
		return errors.Wrap(err, "failed to seed nonce from provider")
	}

	acct.next = onChain
	acct.seeded = true

	s.logger.Debug().
		Str("address", address.Hex()).
		Uint64("nonce", onChain).
		Msg("Seeded account nonce")

	return nil
}

// Allocate reserves the next nonce of address. It fails with NonceGapDetected
// while the account has an unfilled gap.
func (s *Sequencer) Allocate(ctx context.Context, address common.Address) (uint64, error) {
	acct := s.lock(address)
	defer acct.mu.Unlock()

	if err := s.seed(ctx, address, acct); err != nil {
		return 0, err
	}

	if len(acct.gaps) > 0 {
		return 0, gwerr.Newf(gwerr.KindNonceGapDetected, "nonce.allocate",
			"account %s has unfilled nonce gap at %v", address.Hex(), sortedKeys(acct.gaps))
	}

	allocated := acct.next
	acct.next++
	acct.inflight[allocated] = &hold{allocated: 1, advanced: true, from: allocated}

	return allocated, nil
}

// Release returns a nonce reserved by Allocate once its transaction is
// terminal. An Unused nonce rolls the high-water mark back when it is the
// most recent allocation; otherwise the hole is recorded as a gap and a
// NonceGapDetected error is returned.
func (s *Sequencer) Release(address common.Address, nonce uint64, outcome Outcome) error {
	return s.release(address, nonce, outcome, false)
}

// ReleaseReconciled returns a nonce reserved by Reconcile. An Unused nonce
// that was already behind the high-water mark when it was reconciled only
// drops its hold; the sequence never owned it.
func (s *Sequencer) ReleaseReconciled(address common.Address, nonce uint64, outcome Outcome) error {
	return s.release(address, nonce, outcome, true)
}

func (s *Sequencer) release(address common.Address, nonce uint64, outcome Outcome, reconciled bool) error {
	acct := s.lock(address)
	defer acct.mu.Unlock()

	h, ok := acct.inflight[nonce]
	switch {
	case !ok, reconciled && h.reconciled == 0, !reconciled && h.allocated == 0:
		return errors.Errorf("nonce %d of %s is not in flight", nonce, address.Hex())
	case reconciled:
		h.reconciled--
	default:
		h.allocated--
	}

	if outcome == Consumed {
		h.consumed = true
	}
	if h.holders() > 0 {
		return nil
	}
	delete(acct.inflight, nonce)

	if h.consumed || !h.advanced {
		return nil
	}

	if nonce+1 != acct.next {
		acct.gaps[nonce] = struct{}{}

		s.logger.Error().
			Str("address", address.Hex()).
			Uint64("nonce", nonce).
			Uint64("next", acct.next).
			Msg("Nonce gap detected, later transactions of this account will stall")

		if s.onGap != nil {
			s.onGap(address, nonce)
		}

		return gwerr.Newf(gwerr.KindNonceGapDetected, "nonce.release",
			"nonce %d of %s was abandoned after %d was allocated", nonce, address.Hex(), acct.next-1)
	}

	acct.next = h.from
	// Earlier gaps directly below become the top of the sequence and heal too.
	for acct.next > 0 {
		below := acct.next - 1
		if _, gap := acct.gaps[below]; !gap {
			break
		}
		delete(acct.gaps, below)
		acct.next = below
	}

	return nil
}

// Reconcile records a nonce chosen by the caller (a raw payload that embeds
// its own nonce). The higher of the embedded nonce and the high-water mark
// wins; a conflict with the tracked sequence is logged, never dropped.
func (s *Sequencer) Reconcile(ctx context.Context, address common.Address, nonce uint64) error {
	acct := s.lock(address)
	defer acct.mu.Unlock()

	if err := s.seed(ctx, address, acct); err != nil {
		return err
	}

	h, held := acct.inflight[nonce]
	if !held {
		h = &hold{}
		acct.inflight[nonce] = h
	}
	if _, gap := acct.gaps[nonce]; gap && !h.advanced {
		// an Unused release reopens the gap
		h.advanced = true
		h.from = nonce
	}
	if nonce >= acct.next && !h.advanced {
		h.advanced = true
		h.from = acct.next
	}

	switch {
	case nonce > acct.next:
		s.logger.Warn().
			Str("address", address.Hex()).
			Uint64("embedded_nonce", nonce).
			Uint64("next", acct.next).
			Msg("Embedded nonce skips ahead of tracked sequence, adopting it")
		acct.next = nonce + 1
	case nonce == acct.next:
		acct.next++
	default:
		s.logger.Warn().
			Str("address", address.Hex()).
			Uint64("embedded_nonce", nonce).
			Uint64("next", acct.next).
			Bool("in_flight", held).
			Msg("Embedded nonce is behind tracked sequence, keeping high-water mark")
	}

	delete(acct.gaps, nonce)
	h.reconciled++

	return nil
}

// Reset forgets everything known about address. The next Allocate reseeds
// from the provider. This is how a recorded gap is resolved externally.
func (s *Sequencer) Reset(address common.Address) {
	for {
		acct, ok := s.accounts.Load(address)
		if !ok {
			break
		}

		acct.mu.Lock()
		if acct.retired {
			acct.mu.Unlock()
			continue
		}
		acct.retired = true
		s.accounts.Delete(address)
		acct.mu.Unlock()
		break
	}

	s.logger.Info().Str("address", address.Hex()).Msg("Account nonce state reset")
}

// State returns a snapshot of the account's sequence.
func (s *Sequencer) State(address common.Address) State {
	acct, ok := s.accounts.Load(address)
	if !ok {
		return State{}
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()

	inflight := make([]uint64, 0, len(acct.inflight))
	for n := range acct.inflight {
		inflight = append(inflight, n)
	}
	sort.Slice(inflight, func(i, j int) bool { return inflight[i] < inflight[j] })

	return State{
		Seeded:   acct.seeded,
		Next:     acct.next,
		InFlight: inflight,
		Gaps:     sortedKeys(acct.gaps),
	}
}

func sortedKeys(set map[uint64]struct{}) []uint64 {
	keys := make([]uint64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
