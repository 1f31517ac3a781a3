//go:build wireinject

package api

import (
	"github.com/google/wire"
	"github/chapool/contract-gateway/internal/chain"
	"github/chapool/contract-gateway/internal/config"
	"github/chapool/contract-gateway/internal/journal"
	"github/chapool/contract-gateway/internal/metrics"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	NewSequencer,
	NewSigner,
	NewGateway,
	NewArtifact,
	NewFacade,
	metrics.New,
)

var rpcClientSet = wire.NewSet(
	NewRPCClient,
	wire.Bind(new(chain.Adapter), new(*chain.RPCClient)),
)

// InitNewServer returns a new Server instance.
func InitNewServer(
	_ config.Server,
) (*Server, error) {
	wire.Build(serviceSet, rpcClientSet, NewJournal)
	return new(Server), nil
}

// InitNewServerWithAdapter returns a new Server instance talking to the given
// chain adapter and journal. All the other components are initialized via go
// wire according to the configuration.
func InitNewServerWithAdapter(
	_ config.Server,
	_ chain.Adapter,
	_ journal.Store,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}
