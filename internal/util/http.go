package util

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// BindJSONBody decodes the request body into v. Numbers are kept as
// json.Number so that uint256 arguments survive without float rounding.
// Unknown fields are rejected.
func BindJSONBody(c echo.Context, v any) error {
	req := c.Request()
	if req.Body == nil || req.ContentLength == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Request body is empty.")
	}

	if ct := req.Header.Get(echo.HeaderContentType); ct != "" && !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		return echo.ErrUnsupportedMediaType
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read request body")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		LogFromEchoContext(c).Debug().Err(err).Msg("Failed to decode request body")
		return echo.NewHTTPError(http.StatusBadRequest, "Request body is not valid JSON: "+err.Error())
	}

	return nil
}

// ParseJSONArgs parses a query parameter holding a JSON array of arguments.
// An empty value yields no arguments.
func ParseJSONArgs(raw string) ([]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var args []any
	if err := dec.Decode(&args); err != nil {
		return nil, errors.Wrap(err, "arguments must be a JSON array")
	}

	return args, nil
}

type validatable interface {
	Validate() error
}

// BindAndValidateBody binds the JSON body into v and runs its validation.
func BindAndValidateBody(c echo.Context, v validatable) error {
	if err := BindJSONBody(c, v); err != nil {
		return err
	}

	return v.Validate()
}
