package contract

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/types"
	"github/chapool/contract-gateway/internal/util"
)

func PostWriteRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Contract.POST("/write", postWriteHandler(s))
}

func postWriteHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostWritePayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		// validated above
		address, _ := types.ParseAddress(body.ContractAddress)

		outcome, err := s.Facade.WriteCall(ctx, s.Facade.At(address), body.PrivateKey, body.Function, body.FunctionArgs)
		if err != nil {
			log.Debug().Err(err).Str("function", body.Function).Msg("Failed to write contract")
		}

		return respondOutcome(c, http.StatusOK, outcome, err)
	}
}
