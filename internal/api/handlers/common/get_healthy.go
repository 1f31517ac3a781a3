package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// Liveness only tells the process is serving. It never touches the provider.
func getHealthyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(521, "Not ready.")
		}

		return c.String(http.StatusOK, "Healthy.")
	}
}
