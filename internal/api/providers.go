package api

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/contract-gateway/internal/chain"
	"github/chapool/contract-gateway/internal/config"
	"github/chapool/contract-gateway/internal/contract"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/gateway/nonce"
	"github/chapool/contract-gateway/internal/gateway/signer"
	"github/chapool/contract-gateway/internal/journal"
	"github/chapool/contract-gateway/internal/metrics"
)

// PROVIDERS - define here only providers that for various reasons (e.g. cyclic dependency) can't live in their corresponding packages
// or for wrapping providers that only accept sub-configs to prevent the requirements for defining providers for sub-configs.
// https://github.com/google/wire/blob/main/docs/guide.md#defining-providers

func NewRPCClient(cfg config.Server) (*chain.RPCClient, error) {
	return chain.NewRPCClient(cfg.Chain.RPCURLs, cfg.Chain.CallTimeout, log.Logger)
}

//nolint:ireturn
func NewJournal(cfg config.Server) (journal.Store, error) {
	store, err := journal.New(cfg.Journal.StoreType, cfg.Journal.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open transaction journal")
	}

	return store, nil
}

func NewSequencer(adapter chain.Adapter) *nonce.Sequencer {
	return nonce.NewSequencer(adapter, log.Logger)
}

//nolint:ireturn
func NewSigner() signer.Service {
	return signer.NewService()
}

func NewGatewayConfig(cfg config.Server) gateway.Config {
	gw := cfg.Gateway

	return gateway.Config{
		ChainID:            cfg.Chain.ChainID,
		SignTimeout:        gw.SignTimeout,
		SubmitTimeout:      gw.SubmitTimeout,
		SubmitAttempts:     gw.SubmitAttempts,
		InitialBackoff:     gw.InitialBackoff,
		MaxBackoff:         gw.MaxBackoff,
		BackoffFactor:      gw.BackoffFactor,
		PollInterval:       gw.PollInterval,
		ConfirmTimeout:     gw.ConfirmTimeout,
		DefaultGasLimit:    gw.DefaultGasLimit,
		GasPriceMultiplier: gw.GasPriceMultiplier,
		MaxInFlight:        gw.MaxInFlight,
		ReconcileInterval:  gw.ReconcileInterval,
	}
}

func NewGateway(
	cfg config.Server,
	adapter chain.Adapter,
	signerService signer.Service,
	sequencer *nonce.Sequencer,
	store journal.Store,
	metricsService *metrics.Service,
) *gateway.Gateway {
	return gateway.New(adapter, signerService, sequencer, store, metricsService, NewGatewayConfig(cfg), log.Logger)
}

func NewArtifact(cfg config.Server) (*contract.Artifact, error) {
	artifact, err := contract.LoadArtifact(cfg.Contract.ABIPath, cfg.Contract.BytecodePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load contract artifact")
	}

	return artifact, nil
}

func NewFacade(cfg config.Server, adapter chain.Adapter, gw *gateway.Gateway, artifact *contract.Artifact) *contract.Facade {
	return contract.NewFacade(adapter, gw, artifact, contract.Config{
		DeployGasLimit: cfg.Contract.DeployGasLimit,
		WriteGasLimit:  cfg.Contract.WriteGasLimit,
		CallRetryDelay: cfg.Contract.CallRetryDelay,
	}, log.Logger)
}
