package contract

import (
	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/api/httperrors"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/types"
	"github/chapool/contract-gateway/internal/util"
)

// respondOutcome writes a finished lifecycle. An outcome that comes with an
// error (reverted, timed out) is returned alongside the error so that the
// caller always learns the transaction hash.
func respondOutcome(c echo.Context, code int, outcome *gateway.Outcome, err error) error {
	if err == nil {
		return c.JSON(code, outcome)
	}

	httpErr, ok := httperrors.FromGateway(err)
	if !ok || outcome == nil {
		return err
	}

	util.LogFromEchoContext(c).Debug().
		Err(err).
		Str("tx_hash", outcome.Hash.Hex()).
		Str("status", string(outcome.Status)).
		Msg("Transaction did not confirm")

	return c.JSON(httpErr.Code, &types.OutcomeErrorResponse{
		Outcome: outcome,
		Error:   httpErr,
	})
}
