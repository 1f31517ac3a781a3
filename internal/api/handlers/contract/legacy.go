package contract

import (
	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
)

// LegacyRoutes serves the contract operations at the root paths older
// clients call (/deploy, /read, ...). It returns nil when disabled.
func LegacyRoutes(s *api.Server) []*echo.Route {
	g := s.Router.LegacyContractRoot
	if g == nil {
		return nil
	}

	return []*echo.Route{
		g.POST("/deploy", postDeployHandler(s)),
		g.GET("/read", getReadHandler(s)),
		g.POST("/write", postWriteHandler(s)),
		g.GET("/events", getEventsHandler(s)),
		g.POST("/send_raw_transaction", postSendRawTransactionHandler(s)),
	}
}
