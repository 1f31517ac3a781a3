package contract

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/types"
	"github/chapool/contract-gateway/internal/util"
)

func PostDeployRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Contract.POST("/deploy", postDeployHandler(s))
}

func postDeployHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostDeployPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		outcome, err := s.Facade.Deploy(ctx, body.PrivateKey, body.ConstructorArgs)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to deploy contract")
			return respondOutcome(c, http.StatusCreated, outcome, err)
		}

		log.Info().
			Str("tx_hash", outcome.Hash.Hex()).
			Interface("contract_address", outcome.ContractAddress).
			Msg("Contract deployed")

		return respondOutcome(c, http.StatusCreated, outcome, nil)
	}
}
