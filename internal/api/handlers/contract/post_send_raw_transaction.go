package contract

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/types"
	"github/chapool/contract-gateway/internal/util"
)

func PostSendRawTransactionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Contract.POST("/send_raw_transaction", postSendRawTransactionHandler(s))
}

func postSendRawTransactionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostSendRawTransactionPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		raw, err := body.Raw()
		if err != nil {
			return err
		}

		outcome, err := s.Facade.SendRawTransaction(ctx, body.PrivateKey, raw)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to send raw transaction")
		}

		return respondOutcome(c, http.StatusOK, outcome, err)
	}
}
