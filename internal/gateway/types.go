package gateway

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

// Status is the terminal state of a transaction lifecycle.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusReverted  Status = "reverted"
	StatusTimedOut  Status = "timed_out"
	StatusRejected  Status = "rejected"

	// StatusPending is only reported by Lookup for a lifecycle still running.
	StatusPending Status = "pending"
)

// Outcome is produced once per lifecycle and never changed afterwards. A
// later Lookup of a TimedOut hash returns a new Outcome value.
type Outcome struct {
	Hash            common.Hash     `json:"transaction_hash"`
	Status          Status          `json:"status"`
	From            common.Address  `json:"from"`
	Nonce           uint64          `json:"nonce"`
	BlockNumber     uint64          `json:"block_number,omitempty"`
	GasUsed         uint64          `json:"gas_used,omitempty"`
	ContractAddress *common.Address `json:"contract_address,omitempty"`
}

// Finality tells what the caller can conclude from the outcome.
func (o *Outcome) Finality() gwerr.Finality {
	switch o.Status {
	case StatusConfirmed:
		return gwerr.FinalitySucceeded
	case StatusTimedOut, StatusPending:
		return gwerr.FinalityUnknown
	default:
		return gwerr.FinalityFailed
	}
}

// Request describes the on-chain action of a write lifecycle. From and the
// nonce are never supplied by the caller: the account is derived from the
// private key and the nonce comes from the sequencer.
type Request struct {
	To        *common.Address // nil deploys Data as contract code
	Data      []byte
	Value     *big.Int
	GasLimit  uint64   // zero uses Config.DefaultGasLimit
	GasPrice  *big.Int // nil asks the provider
	GasFeeCap *big.Int // set together with GasTipCap for an EIP-1559 transaction
	GasTipCap *big.Int
}

// Config bounds every stage of a lifecycle.
type Config struct {
	ChainID int64 // zero asks the provider once

	SignTimeout    time.Duration
	SubmitTimeout  time.Duration // per submission attempt
	SubmitAttempts int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	PollInterval   time.Duration
	ConfirmTimeout time.Duration

	DefaultGasLimit    uint64
	GasPriceMultiplier uint64 // percent applied to the provider's suggestion, zero means 100

	MaxInFlight       int
	ReconcileInterval time.Duration
}

// DefaultConfig returns the values used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		SignTimeout:        5 * time.Second,
		SubmitTimeout:      10 * time.Second,
		SubmitAttempts:     5,
		InitialBackoff:     500 * time.Millisecond,
		MaxBackoff:         10 * time.Second,
		BackoffFactor:      2.0,
		PollInterval:       2 * time.Second,
		ConfirmTimeout:     2 * time.Minute,
		DefaultGasLimit:    300_000,
		GasPriceMultiplier: 100,
		MaxInFlight:        64,
		ReconcileInterval:  30 * time.Second,
	}
}

// withDefaults fills zero fields so that no stage can block unbounded.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.SignTimeout <= 0 {
		c.SignTimeout = def.SignTimeout
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = def.SubmitTimeout
	}
	if c.SubmitAttempts <= 0 {
		c.SubmitAttempts = def.SubmitAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = def.BackoffFactor
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = def.ConfirmTimeout
	}
	if c.DefaultGasLimit == 0 {
		c.DefaultGasLimit = def.DefaultGasLimit
	}
	if c.GasPriceMultiplier == 0 {
		c.GasPriceMultiplier = def.GasPriceMultiplier
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = def.MaxInFlight
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = def.ReconcileInterval
	}

	return c
}

// Recorder receives lifecycle measurements. *metrics.Service implements it.
type Recorder interface {
	ObserveOutcome(status string, elapsed time.Duration)
	SubmitAttempt(result string)
	NonceGap()
	InFlight(delta int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOutcome(string, time.Duration) {}
func (nopRecorder) SubmitAttempt(string)                 {}
func (nopRecorder) NonceGap()                            {}
func (nopRecorder) InFlight(int)                         {}
