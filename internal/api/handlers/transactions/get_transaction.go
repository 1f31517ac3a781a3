package transactions

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/api/httperrors"
	"github/chapool/contract-gateway/internal/types"
	"github/chapool/contract-gateway/internal/util"
)

func GetTransactionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Transactions.GET("/:hash", getTransactionHandler(s))
}

// getTransactionHandler reports the outcome of a transaction by hash. This is
// how a caller told "timed out" learns the final result.
func getTransactionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		hash, err := types.ParseHash(c.Param("hash"))
		if err != nil {
			return httperrors.ErrBadRequestInvalidHash
		}

		outcome, err := s.Gateway.Lookup(ctx, hash)
		if err != nil {
			log.Debug().Err(err).Str("tx_hash", hash.Hex()).Msg("Failed to look up transaction")
			return err
		}

		return c.JSON(http.StatusOK, outcome)
	}
}
