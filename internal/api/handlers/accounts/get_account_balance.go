package accounts

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/api/httperrors"
	"github/chapool/contract-gateway/internal/types"
	"github/chapool/contract-gateway/internal/util"
)

func GetAccountBalanceRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Accounts.GET("/:address/balance", getAccountBalanceHandler(s))
}

// getAccountBalanceHandler reports the native balance in wei, so a caller can
// tell whether an account can pay for its next write.
func getAccountBalanceHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		address, err := types.ParseAddress(c.Param("address"))
		if err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.PublicHTTPErrorTypeInvalidInput, "Invalid account address.")
		}

		balance, err := s.Chain.BalanceAt(ctx, address)
		if err != nil {
			log.Error().Err(err).Str("address", address.Hex()).Msg("Failed to get account balance")
			return err
		}

		return c.JSON(http.StatusOK, &types.AccountBalanceResponse{
			Address: address,
			Balance: balance.String(),
		})
	}
}
