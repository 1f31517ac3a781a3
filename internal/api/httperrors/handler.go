package httperrors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/contract-gateway/internal/util"
)

// HTTPErrorHandler renders every error returned by a handler as an HTTPError
// JSON body. Errors carrying a gateway kind get their mapped status.
func HTTPErrorHandler(hideInternalDetails bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		log := util.LogFromEchoContext(c)
		httpErr := toHTTPError(err, hideInternalDetails)

		if httpErr.Code >= http.StatusInternalServerError {
			log.Error().Err(err).Int("status", httpErr.Code).Msg("Request failed")
		} else {
			log.Debug().Err(err).Int("status", httpErr.Code).Msg("Request rejected")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(httpErr.Code)
		} else {
			writeErr = c.JSON(httpErr.Code, httpErr)
		}
		if writeErr != nil {
			log.Warn().Err(writeErr).Msg("Failed to write error response")
		}
	}
}

func toHTTPError(err error, hideInternalDetails bool) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	if mapped, ok := FromGateway(err); ok {
		return mapped
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		title := http.StatusText(echoErr.Code)
		if msg, ok := echoErr.Message.(string); ok && msg != "" {
			title = msg
		}
		return NewHTTPError(echoErr.Code, PublicHTTPErrorTypeGeneric, title)
	}

	internal := NewHTTPError(http.StatusInternalServerError, PublicHTTPErrorTypeGeneric, http.StatusText(http.StatusInternalServerError))
	if !hideInternalDetails {
		internal.Detail = err.Error()
	}

	return internal
}
