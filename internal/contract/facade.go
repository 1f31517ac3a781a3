// Package contract maps calls against a contract's ABI onto the chain
// adapter (reads, event queries) and the transaction gateway (writes,
// deployment, raw relays).
package contract

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github/chapool/contract-gateway/internal/chain"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

const (
	// DefaultDeployGasLimit is the fixed gas limit of contract creation.
	DefaultDeployGasLimit = 1_500_000
	// DefaultReadFunction is called when a read names no function.
	DefaultReadFunction = "myFunction"
	// DefaultWriteFunction is sent when a write names no function.
	DefaultWriteFunction = "myFunction"

	defaultCallRetryDelay = 250 * time.Millisecond
)

// Lifecycle is the part of the gateway the facade writes through.
type Lifecycle interface {
	Execute(ctx context.Context, privateKey string, req *gateway.Request) (*gateway.Outcome, error)
	ExecuteRaw(ctx context.Context, privateKey string, payload *gateway.RawPayload) (*gateway.Outcome, error)
}

// Descriptor identifies a deployed contract and its interface.
type Descriptor struct {
	Address common.Address
	ABI     abi.ABI
}

// Config of the facade. Zero values use the defaults.
type Config struct {
	DeployGasLimit uint64
	WriteGasLimit  uint64 // zero leaves the choice to the gateway
	CallRetryDelay time.Duration
}

// Facade is safe for concurrent use. Reads and event queries never touch
// the nonce sequencer.
type Facade struct {
	adapter   chain.Adapter
	lifecycle Lifecycle
	artifact  *Artifact
	cfg       Config
	logger    zerolog.Logger
}

// NewFacade creates a Facade serving artifact.
func NewFacade(adapter chain.Adapter, lifecycle Lifecycle, artifact *Artifact, cfg Config, logger zerolog.Logger) *Facade {
	if cfg.DeployGasLimit == 0 {
		cfg.DeployGasLimit = DefaultDeployGasLimit
	}
	if cfg.CallRetryDelay <= 0 {
		cfg.CallRetryDelay = defaultCallRetryDelay
	}

	return &Facade{
		adapter:   adapter,
		lifecycle: lifecycle,
		artifact:  artifact,
		cfg:       cfg,
		logger:    logger.With().Str("component", "contract_facade").Logger(),
	}
}

// At describes the served contract deployed at address.
func (f *Facade) At(address common.Address) Descriptor {
	return Descriptor{Address: address, ABI: f.artifact.ABI}
}

// Deploy creates the contract from the artifact bytecode, passing args to
// its constructor.
func (f *Facade) Deploy(ctx context.Context, privateKey string, args []any) (*gateway.Outcome, error) {
	if len(f.artifact.Bytecode) == 0 {
		return nil, gwerr.New(gwerr.KindInvalidInput, "contract.deploy", "no contract bytecode configured")
	}

	coerced, err := coerceArgs(f.artifact.ABI.Constructor.Inputs, args)
	if err != nil {
		return nil, err
	}

	packed, err := f.artifact.ABI.Pack("", coerced...)
	if err != nil {
		return nil, gwerr.Wrap(err, gwerr.KindInvalidInput, "contract.deploy", "failed to encode constructor arguments")
	}

	data := make([]byte, 0, len(f.artifact.Bytecode)+len(packed))
	data = append(data, f.artifact.Bytecode...)
	data = append(data, packed...)

	return f.lifecycle.Execute(ctx, privateKey, &gateway.Request{
		Data:     data,
		GasLimit: f.cfg.DeployGasLimit,
	})
}

// ReadCall simulates function against the latest block and returns its
// decoded outputs. A transient provider failure is retried once.
func (f *Facade) ReadCall(ctx context.Context, d Descriptor, function string, args []any) ([]any, error) {
	method, data, err := pack(d, function, args)
	if err != nil {
		return nil, err
	}

	call := chain.CallRequest{To: d.Address, Data: data}

	out, err := f.adapter.Call(ctx, call)
	if gwerr.Retryable(err) {
		f.logger.Debug().Err(err).Str("function", function).Msg("Read call failed, retrying once")

		timer := time.NewTimer(f.cfg.CallRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}

		out, err = f.adapter.Call(ctx, call)
	}
	if err != nil {
		return nil, err
	}

	if len(out) == 0 && len(method.Outputs) > 0 {
		return nil, gwerr.Newf(gwerr.KindDecodeError, "contract.read",
			"empty result from %s, no contract code at %s?", function, d.Address.Hex())
	}

	values, err := method.Outputs.Unpack(out)
	if err != nil {
		return nil, gwerr.Wrap(err, gwerr.KindDecodeError, "contract.read", "failed to decode "+function+" result")
	}

	result := make([]any, len(values))
	for i, v := range values {
		result[i] = normalize(v)
	}

	return result, nil
}

// WriteCall sends function with args through the full transaction lifecycle.
func (f *Facade) WriteCall(ctx context.Context, d Descriptor, privateKey string, function string, args []any) (*gateway.Outcome, error) {
	_, data, err := pack(d, function, args)
	if err != nil {
		return nil, err
	}

	to := d.Address
	return f.lifecycle.Execute(ctx, privateKey, &gateway.Request{
		To:       &to,
		Data:     data,
		GasLimit: f.cfg.WriteGasLimit,
	})
}

// SendRawTransaction relays a caller-shaped transaction, see
// gateway.ParseRawPayload for the accepted forms.
func (f *Facade) SendRawTransaction(ctx context.Context, privateKey string, rawTransaction string) (*gateway.Outcome, error) {
	payload, err := gateway.ParseRawPayload(rawTransaction)
	if err != nil {
		return nil, err
	}

	return f.lifecycle.ExecuteRaw(ctx, privateKey, payload)
}

func pack(d Descriptor, function string, args []any) (abi.Method, []byte, error) {
	if d.Address == (common.Address{}) {
		return abi.Method{}, nil, gwerr.New(gwerr.KindInvalidInput, "contract.pack", "contract address is required")
	}

	method, ok := d.ABI.Methods[function]
	if !ok {
		return abi.Method{}, nil, gwerr.Newf(gwerr.KindUnknownFunction, "contract.pack",
			"function %q is not defined by the contract interface", function)
	}

	coerced, err := coerceArgs(method.Inputs, args)
	if err != nil {
		return abi.Method{}, nil, err
	}

	data, err := d.ABI.Pack(function, coerced...)
	if err != nil {
		return abi.Method{}, nil, gwerr.Wrap(err, gwerr.KindInvalidInput, "contract.pack", "failed to encode "+function+" arguments")
	}

	return method, data, nil
}
