package accounts

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/api/httperrors"
	"github/chapool/contract-gateway/internal/types"
	"github/chapool/contract-gateway/internal/util"
)

func DeleteAccountNonceRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Accounts.DELETE("/:address/nonce", deleteAccountNonceHandler(s))
}

// deleteAccountNonceHandler drops the local nonce view of an account, the
// next write reseeds it from the provider. Used to clear a nonce gap once
// the operator filled or abandoned it. In-flight nonces block the reset
// unless force=true.
func deleteAccountNonceHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := util.LogFromEchoContext(c)

		address, err := types.ParseAddress(c.Param("address"))
		if err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.PublicHTTPErrorTypeInvalidInput, "Invalid account address.")
		}

		state := s.Sequencer.State(address)
		if len(state.InFlight) > 0 && c.QueryParam("force") != "true" {
			return httperrors.NewHTTPErrorWithDetail(http.StatusConflict, httperrors.PublicHTTPErrorTypeGeneric,
				"Account has transactions in flight.", "wait for them to settle or pass force=true")
		}

		s.Sequencer.Reset(address)
		log.Info().Str("address", address.Hex()).Uints64("gaps", state.Gaps).Msg("Account nonce reset")

		return c.NoContent(http.StatusNoContent)
	}
}
