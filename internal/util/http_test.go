package util_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/contract-gateway/internal/util"
)

type testPayload struct {
	Value json.Number `json:"value"`
	Name  string      `json:"name"`
}

func (p *testPayload) Validate() error {
	if p.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	return nil
}

func newContext(body string, contentType string) echo.Context {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}

	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestBindJSONBody(t *testing.T) {
	var p testPayload
	err := util.BindJSONBody(newContext(`{"value": 115792089237316195423570985008687907853269984665640564039457584007913129639935, "name": "max"}`, echo.MIMEApplicationJSON), &p)
	require.NoError(t, err)
	assert.Equal(t, "115792089237316195423570985008687907853269984665640564039457584007913129639935", p.Value.String())
	assert.Equal(t, "max", p.Name)
}

func TestBindJSONBodyErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		code        int
	}{
		{"empty", "", echo.MIMEApplicationJSON, http.StatusBadRequest},
		{"unknown field", `{"other": 1}`, echo.MIMEApplicationJSON, http.StatusBadRequest},
		{"malformed", `{"value":`, echo.MIMEApplicationJSON, http.StatusBadRequest},
		{"form", "value=1", echo.MIMEApplicationForm, http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p testPayload
			err := util.BindJSONBody(newContext(tt.body, tt.contentType), &p)

			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.code, httpErr.Code)
		})
	}
}

func TestBindAndValidateBody(t *testing.T) {
	var p testPayload
	require.NoError(t, util.BindAndValidateBody(newContext(`{"name": "x"}`, ""), &p))

	err := util.BindAndValidateBody(newContext(`{"value": 1}`, echo.MIMEApplicationJSON), &p)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "name is required", httpErr.Message)
}

func TestParseJSONArgs(t *testing.T) {
	args, err := util.ParseJSONArgs("")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = util.ParseJSONArgs(`[1, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", [2, 3], true]`)
	require.NoError(t, err)
	require.Len(t, args, 4)
	assert.Equal(t, json.Number("1"), args[0])
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", args[1])
	assert.Equal(t, []any{json.Number("2"), json.Number("3")}, args[2])
	assert.Equal(t, true, args[3])

	_, err = util.ParseJSONArgs(`{"a": 1}`)
	require.Error(t, err)
}
