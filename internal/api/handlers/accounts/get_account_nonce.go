package accounts

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/api/httperrors"
	"github/chapool/contract-gateway/internal/types"
)

func GetAccountNonceRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Accounts.GET("/:address/nonce", getAccountNonceHandler(s))
}

func getAccountNonceHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		address, err := types.ParseAddress(c.Param("address"))
		if err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.PublicHTTPErrorTypeInvalidInput, "Invalid account address.")
		}

		state := s.Sequencer.State(address)

		return c.JSON(http.StatusOK, &types.AccountNonceResponse{
			Address:  address,
			Seeded:   state.Seeded,
			Next:     state.Next,
			InFlight: state.InFlight,
			Gaps:     state.Gaps,
		})
	}
}
