package contract

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/chain"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
	"github/chapool/contract-gateway/internal/test"
)

var deployed = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func TestRunDeploy(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		var out bytes.Buffer
		require.NoError(t, runDeploy(t.Context(), s, &out, test.PrivateKey, []string{"7"}))

		var res deployResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.Equal(t, crypto.CreateAddress(test.Address, 0).Hex(), res.ContractAddress)
		assert.NotEmpty(t, res.TransactionHash)
	})
}

func TestRunRead(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		encoded, err := test.ContractArtifact(t).ABI.Methods["myFunction"].Outputs.Pack(big.NewInt(42))
		require.NoError(t, err)
		test.ChainOf(t, s).OnCall(func(chain.CallRequest) ([]byte, error) {
			return encoded, nil
		})

		var out bytes.Buffer
		require.NoError(t, runRead(t.Context(), s, &out, deployed.Hex(), "myFunction", ""))
		assert.JSONEq(t, `{"data": "42"}`, out.String())

		err = runRead(t.Context(), s, &out, "nope", "myFunction", "")
		assert.True(t, gwerr.Is(err, gwerr.KindInvalidInput))
	})
}

func TestRunWriteReverted(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.ChainOf(t, s).SetRevert(true)

		var out bytes.Buffer
		err := runWrite(t.Context(), s, &out, deployed.Hex(), test.PrivateKey, "setValue", []string{"5"})
		require.Error(t, err)
		assert.True(t, gwerr.Is(err, gwerr.KindReverted))

		var res struct {
			Outcome gateway.Outcome `json:"outcome"`
			Error   string          `json:"error"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.Equal(t, gateway.StatusReverted, res.Outcome.Status)
		assert.NotEmpty(t, res.Error)
	})
}

func TestRunWrite(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		var out bytes.Buffer
		require.NoError(t, runWrite(t.Context(), s, &out, deployed.Hex(), test.PrivateKey, "setMany", []string{"[1,2,3]", "0x0102"}))

		var res writeResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		require.Len(t, test.ChainOf(t, s).Submitted(), 1)
		assert.Equal(t, test.ChainOf(t, s).Submitted()[0].Hash().Hex(), res.TransactionHash)
	})
}

func TestRunEvents(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		fake := test.ChainOf(t, s)
		event := test.ContractArtifact(t).ABI.Events["ValueChanged"]

		data, err := event.Inputs.NonIndexed().Pack(big.NewInt(9))
		require.NoError(t, err)
		fake.AddLogs(types.Log{
			Address:     deployed,
			Topics:      []common.Hash{event.ID, common.BytesToHash(test.Address.Bytes())},
			Data:        data,
			BlockNumber: 3,
		})
		fake.SetHead(10)

		var out bytes.Buffer
		require.NoError(t, runEvents(t.Context(), s, &out, deployed.Hex(), "ValueChanged", "0", "latest"))

		var res struct {
			Events []struct {
				Event string         `json:"event"`
				Args  map[string]any `json:"args"`
			} `json:"events"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		require.Len(t, res.Events, 1)
		assert.Equal(t, "ValueChanged", res.Events[0].Event)
		assert.Equal(t, "9", res.Events[0].Args["value"])

		err = runEvents(t.Context(), s, &out, deployed.Hex(), "ValueChanged", "soon", "latest")
		assert.True(t, gwerr.Is(err, gwerr.KindInvalidInput))
	})
}

func TestRunSendRawAndStatus(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		var out bytes.Buffer
		raw := `{"to": "` + test.SecondAddress.Hex() + `", "gas": 21000, "gasPrice": 1, "value": 5}`
		require.NoError(t, runSendRaw(t.Context(), s, &out, test.PrivateKey, raw))

		var outcome gateway.Outcome
		require.NoError(t, json.Unmarshal(out.Bytes(), &outcome))
		assert.Equal(t, gateway.StatusConfirmed, outcome.Status)

		out.Reset()
		require.NoError(t, runStatus(t.Context(), s, &out, outcome.Hash.Hex()))

		var status gateway.Outcome
		require.NoError(t, json.Unmarshal(out.Bytes(), &status))
		assert.Equal(t, outcome.Hash, status.Hash)
		assert.Equal(t, gateway.StatusConfirmed, status.Status)

		err := runStatus(t.Context(), s, &out, "0x1234")
		assert.True(t, gwerr.Is(err, gwerr.KindInvalidInput))
	})
}

func TestNewCommandTree(t *testing.T) {
	cmd := New()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"deploy", "read", "write", "events", "send-raw", "status"}, names)

	sendRaw, _, err := cmd.Find([]string{"send_raw_transaction"})
	require.NoError(t, err)
	assert.Equal(t, "send-raw", sendRaw.Name())
}
