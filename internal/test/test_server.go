package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/api/router"
	"github/chapool/contract-gateway/internal/config"
	"github/chapool/contract-gateway/internal/journal"
)

// ServerConfig returns the environment config with an in-memory journal,
// the test contract artifact and millisecond lifecycle timings.
func ServerConfig(t *testing.T) config.Server {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)

	abiPath, binPath := WriteContractFiles(t)
	cfg.Contract.ABIPath = abiPath
	cfg.Contract.BytecodePath = binPath
	cfg.Contract.CallRetryDelay = time.Millisecond

	cfg.Journal.StoreType = journal.StoreTypeMemory
	cfg.Journal.Path = ""

	fast := FastGatewayConfig()
	cfg.Gateway.SignTimeout = fast.SignTimeout
	cfg.Gateway.SubmitTimeout = fast.SubmitTimeout
	cfg.Gateway.SubmitAttempts = fast.SubmitAttempts
	cfg.Gateway.InitialBackoff = fast.InitialBackoff
	cfg.Gateway.MaxBackoff = fast.MaxBackoff
	cfg.Gateway.PollInterval = fast.PollInterval
	cfg.Gateway.ConfirmTimeout = fast.ConfirmTimeout
	cfg.Gateway.ReconcileInterval = fast.ReconcileInterval
	cfg.Gateway.EnableReconciler = false

	cfg.Echo.EnableLegacyRoutes = true
	cfg.Echo.HideInternalServerErrorDetails = false
	cfg.Management.EnableMetrics = true
	cfg.Management.ReadinessTimeout = time.Second

	return cfg
}

// WithTestServer returns a fully configured server backed by a FakeChain,
// see ChainOf.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	WithTestServerConfigurable(t, ServerConfig(t), closure)
}

// WithTestServerConfigurable is WithTestServer with an explicit config.
func WithTestServerConfigurable(t *testing.T, config config.Server, closure func(s *api.Server)) {
	t.Helper()

	s, err := api.InitNewServerWithAdapter(config, NewFakeChain(), journal.NewMemoryStore())
	require.NoError(t, err, "failed to initialize server")

	err = router.Init(s)
	require.NoError(t, err, "failed to initialize router")

	closure(s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errs := s.Shutdown(ctx)
	require.Empty(t, errs, "failed to shutdown server")
}

// ChainOf returns the FakeChain behind a test server.
func ChainOf(t *testing.T, s *api.Server) *FakeChain {
	t.Helper()

	fake, ok := s.Chain.(*FakeChain)
	require.True(t, ok, "server is not backed by a FakeChain")

	return fake
}
