package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github/chapool/contract-gateway/internal/chain"
	"github/chapool/contract-gateway/internal/config"
	"github/chapool/contract-gateway/internal/contract"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/gateway/nonce"
	"github/chapool/contract-gateway/internal/journal"
	"github/chapool/contract-gateway/internal/metrics"
	"github/chapool/contract-gateway/internal/util"
)

type Router struct {
	Routes             []*echo.Route
	Root               *echo.Group
	Management         *echo.Group
	APIV1Contract      *echo.Group
	APIV1Transactions  *echo.Group
	APIV1Accounts      *echo.Group
	LegacyContractRoot *echo.Group // nil unless Echo.EnableLegacyRoutes
}

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
//
// Components labeled as `wire:"-"` will be skipped and have to be initialized after the InitNewServer* call.
// For more information about wire refer to https://pkg.go.dev/github.com/google/wire
type Server struct {
	// skip wire:
	// -> initialized with router.Init(s) function
	Echo   *echo.Echo `wire:"-"`
	Router *Router    `wire:"-"`

	Config    config.Server
	Chain     chain.Adapter
	Sequencer *nonce.Sequencer
	Journal   journal.Store
	Gateway   *gateway.Gateway
	Facade    *contract.Facade
	Metrics   *metrics.Service
}

// newServerWithComponents is used by wire to initialize the server components.
// Components not listed here won't be handled by wire and should be initialized separately.
// Components which shouldn't be handled must be labeled `wire:"-"` in Server struct.
func newServerWithComponents(
	cfg config.Server,
	adapter chain.Adapter,
	sequencer *nonce.Sequencer,
	store journal.Store,
	gw *gateway.Gateway,
	facade *contract.Facade,
	metrics *metrics.Service,
) *Server {
	return &Server{
		Config:    cfg,
		Chain:     adapter,
		Sequencer: sequencer,
		Journal:   store,
		Gateway:   gw,
		Facade:    facade,
		Metrics:   metrics,
	}
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

// ProviderReady asks the provider for its chain id, the cheapest call that
// proves the endpoint answers.
func (s *Server) ProviderReady(ctx context.Context) error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if _, err := s.Chain.ChainID(ctx); err != nil {
		return fmt.Errorf("provider is not reachable: %w", err)
	}

	return nil
}

// RunReconciler settles journaled transactions in the background until ctx
// is done.
func (s *Server) RunReconciler(ctx context.Context) {
	if !s.Config.Gateway.EnableReconciler || s.Gateway == nil {
		return
	}

	go s.Gateway.RunReconciler(ctx)
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	// in-flight lifecycles finish before the journal they write to closes
	if s.Gateway != nil {
		log.Debug().Msg("Waiting for in-flight transactions")

		if err := s.Gateway.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to drain in-flight transactions")
			errs = append(errs, err)
		}
	}

	if s.Journal != nil {
		log.Debug().Msg("Closing transaction journal")

		if err := s.Journal.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close transaction journal")
			errs = append(errs, err)
		}
	}

	if closer, ok := s.Chain.(interface{ Close() }); ok {
		log.Debug().Msg("Closing RPC connections")
		closer.Close()
	}

	return errs
}
