package contract

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/api/httperrors"
	"github/chapool/contract-gateway/internal/contract"
	"github/chapool/contract-gateway/internal/types"
	"github/chapool/contract-gateway/internal/util"
)

func GetReadRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Contract.GET("/read", getReadHandler(s))
}

func getReadHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		address, err := types.ParseAddress(c.QueryParam("contract_address"))
		if err != nil {
			return httperrors.ErrBadRequestInvalidAddress
		}

		function := c.QueryParam("function")
		if function == "" {
			function = contract.DefaultReadFunction
		}

		args, err := util.ParseJSONArgs(c.QueryParam("args"))
		if err != nil {
			return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, httperrors.PublicHTTPErrorTypeInvalidInput,
				"Invalid args.", err.Error())
		}

		values, err := s.Facade.ReadCall(ctx, s.Facade.At(address), function, args)
		if err != nil {
			log.Debug().Err(err).Str("function", function).Msg("Failed to read contract")
			return err
		}

		return c.JSON(http.StatusOK, types.NewReadResponse(values))
	}
}
