package handlers

import (
	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/api/handlers/accounts"
	"github/chapool/contract-gateway/internal/api/handlers/common"
	"github/chapool/contract-gateway/internal/api/handlers/contract"
	"github/chapool/contract-gateway/internal/api/handlers/transactions"
)

func AttachAllRoutes(s *api.Server) {
	// attach our routes
	s.Router.Routes = []*echo.Route{
		accounts.DeleteAccountNonceRoute(s),
		accounts.GetAccountBalanceRoute(s),
		accounts.GetAccountNonceRoute(s),
		common.GetHealthyRoute(s),
		common.GetReadyRoute(s),
		contract.GetEventsRoute(s),
		contract.GetReadRoute(s),
		contract.PostDeployRoute(s),
		contract.PostSendRawTransactionRoute(s),
		contract.PostWriteRoute(s),
		transactions.GetTransactionRoute(s),
	}

	s.Router.Routes = append(s.Router.Routes, contract.LegacyRoutes(s)...)
}
