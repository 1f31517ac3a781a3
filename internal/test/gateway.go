package test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/gateway/nonce"
	"github/chapool/contract-gateway/internal/gateway/signer"
	"github/chapool/contract-gateway/internal/journal"
)

// GatewayFixture is a gateway wired to a FakeChain and an in-memory journal.
type GatewayFixture struct {
	Chain     *FakeChain
	Sequencer *nonce.Sequencer
	Journal   journal.Store
	Gateway   *gateway.Gateway
}

// FastGatewayConfig polls and backs off in milliseconds.
func FastGatewayConfig() gateway.Config {
	return gateway.Config{
		SignTimeout:       time.Second,
		SubmitTimeout:     time.Second,
		SubmitAttempts:    3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffFactor:     2,
		PollInterval:      5 * time.Millisecond,
		ConfirmTimeout:    2 * time.Second,
		DefaultGasLimit:   100_000,
		MaxInFlight:       16,
		ReconcileInterval: 10 * time.Millisecond,
	}
}

// NewGatewayFixture builds a fixture closed on test cleanup.
func NewGatewayFixture(t *testing.T, cfg gateway.Config) *GatewayFixture {
	t.Helper()

	return NewGatewayFixtureWithJournal(t, cfg, journal.NewMemoryStore())
}

// NewGatewayFixtureWithJournal builds a fixture writing to store, which is
// closed on test cleanup.
func NewGatewayFixtureWithJournal(t *testing.T, cfg gateway.Config, store journal.Store) *GatewayFixture {
	t.Helper()

	fake := NewFakeChain()
	seq := nonce.NewSequencer(fake, zerolog.Nop())
	gw := gateway.New(fake, signer.NewService(), seq, store, nil, cfg, zerolog.Nop())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = gw.Close(ctx)
		_ = store.Close()
	})

	return &GatewayFixture{
		Chain:     fake,
		Sequencer: seq,
		Journal:   store,
		Gateway:   gw,
	}
}
