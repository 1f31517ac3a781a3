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

func GetEventsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Contract.GET("/events", getEventsHandler(s))
}

func getEventsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		address, err := types.ParseAddress(c.QueryParam("contract_address"))
		if err != nil {
			return httperrors.ErrBadRequestInvalidAddress
		}

		eventName := c.QueryParam("event_name")
		if eventName == "" {
			return httperrors.ErrBadRequestMissingEventName
		}

		from, err := contract.ParseBlockTag(c.QueryParam("from_block"), contract.Block(0))
		if err != nil {
			return err
		}
		to, err := contract.ParseBlockTag(c.QueryParam("to_block"), contract.Latest)
		if err != nil {
			return err
		}

		events, err := s.Facade.GetEvents(ctx, s.Facade.At(address), eventName, from, to)
		if err != nil {
			log.Debug().Err(err).Str("event", eventName).Msg("Failed to get contract events")
			return err
		}

		return c.JSON(http.StatusOK, &types.EventsResponse{Events: events})
	}
}
