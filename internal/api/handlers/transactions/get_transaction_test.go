package transactions_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/api/httperrors"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/test"
)

func TestGetTransactionAfterTimeout(t *testing.T) {
	cfg := test.ServerConfig(t)
	cfg.Gateway.ConfirmTimeout = 30 * time.Millisecond

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server) {
		fake := test.ChainOf(t, s)
		fake.SetAutoMine(false)

		res := test.PerformRequest(t, s, "POST", "/api/v1/contract/send_raw_transaction", test.GenericPayload{
			"private_key":     test.PrivateKey,
			"raw_transaction": map[string]any{"to": test.SecondAddress.Hex(), "gas": 21000, "gasPrice": 1},
		}, nil)
		require.Equal(t, http.StatusAccepted, res.Result().StatusCode, res.Body.String())

		var body struct {
			Outcome gateway.Outcome `json:"outcome"`
		}
		test.ParseResponseAndValidate(t, res, &body)
		hash := body.Outcome.Hash

		// still unmined, the nonce stays held
		res = test.PerformRequest(t, s, "GET", "/api/v1/transactions/"+hash.Hex(), nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode, res.Body.String())

		var outcome gateway.Outcome
		test.ParseResponseAndValidate(t, res, &outcome)
		assert.Equal(t, gateway.StatusTimedOut, outcome.Status)
		assert.Equal(t, []uint64{0}, s.Sequencer.State(test.Address).InFlight)

		fake.Mine(hash, true)

		res = test.PerformRequest(t, s, "GET", "/api/v1/transactions/"+hash.Hex(), nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode, res.Body.String())

		test.ParseResponseAndValidate(t, res, &outcome)
		assert.Equal(t, gateway.StatusConfirmed, outcome.Status)
		assert.NotZero(t, outcome.BlockNumber)
		assert.Empty(t, s.Sequencer.State(test.Address).InFlight)
	})
}

func TestGetTransactionUnknown(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/transactions/0x"+
			"1111111111111111111111111111111111111111111111111111111111111111", nil, nil)
		require.Equal(t, http.StatusNotFound, res.Result().StatusCode, res.Body.String())

		var httpErr httperrors.HTTPError
		test.ParseResponseAndValidate(t, res, &httpErr)
		assert.Equal(t, httperrors.PublicHTTPErrorTypeNotFound, httpErr.Type)
	})
}

func TestGetTransactionInvalidHash(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		for _, hash := range []string{"0x1234", "0x" + strings.Repeat("zz", 32)} {
			res := test.PerformRequest(t, s, "GET", "/api/v1/transactions/"+hash, nil, nil)
			assert.Equal(t, http.StatusBadRequest, res.Result().StatusCode)
		}
	})
}
