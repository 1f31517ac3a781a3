// Package types holds the JSON payloads of the HTTP surface.
package types

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/contract-gateway/internal/contract"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

type PostDeployPayload struct {
	PrivateKey      string `json:"private_key"`
	ConstructorArgs []any  `json:"constructor_args,omitempty"`
}

func (p *PostDeployPayload) Validate() error {
	return requireKey(p.PrivateKey)
}

type PostWritePayload struct {
	ContractAddress string `json:"contract_address"`
	PrivateKey      string `json:"private_key"`
	Function        string `json:"function,omitempty"`
	FunctionArgs    []any  `json:"function_args"`
}

func (p *PostWritePayload) Validate() error {
	if err := requireKey(p.PrivateKey); err != nil {
		return err
	}
	if _, err := ParseAddress(p.ContractAddress); err != nil {
		return err
	}
	if p.Function == "" {
		p.Function = contract.DefaultWriteFunction
	}

	return nil
}

// PostSendRawTransactionPayload carries raw_transaction either as a JSON
// object (the transaction dictionary) or as a string (JSON text or hex).
type PostSendRawTransactionPayload struct {
	PrivateKey     string          `json:"private_key"`
	RawTransaction json.RawMessage `json:"raw_transaction"`
}

func (p *PostSendRawTransactionPayload) Validate() error {
	if err := requireKey(p.PrivateKey); err != nil {
		return err
	}
	if len(p.RawTransaction) == 0 || string(p.RawTransaction) == "null" {
		return gwerr.New(gwerr.KindInvalidInput, "types.sendRaw", "raw_transaction is required")
	}

	return nil
}

// Raw returns raw_transaction in the form gateway.ParseRawPayload accepts.
func (p *PostSendRawTransactionPayload) Raw() (string, error) {
	trimmed := strings.TrimSpace(string(p.RawTransaction))
	if !strings.HasPrefix(trimmed, `"`) {
		return trimmed, nil
	}

	var s string
	if err := json.Unmarshal(p.RawTransaction, &s); err != nil {
		return "", gwerr.Wrap(err, gwerr.KindInvalidInput, "types.sendRaw", "raw_transaction is not a valid string")
	}

	return s, nil
}

type ReadResponse struct {
	// Data is the single return value, or the list of values of a function
	// with several outputs.
	Data any `json:"data"`
}

func NewReadResponse(values []any) *ReadResponse {
	if len(values) == 1 {
		return &ReadResponse{Data: values[0]}
	}

	return &ReadResponse{Data: values}
}

type EventsResponse struct {
	Events []contract.Event `json:"events"`
}

// OutcomeErrorResponse is returned when a lifecycle produced an outcome but
// did not confirm, e.g. a revert or a timeout.
type OutcomeErrorResponse struct {
	Outcome *gateway.Outcome `json:"outcome"`
	Error   any              `json:"error"`
}

type AccountNonceResponse struct {
	Address  common.Address `json:"address"`
	Seeded   bool           `json:"seeded"`
	Next     uint64         `json:"next_nonce"`
	InFlight []uint64       `json:"in_flight"`
	Gaps     []uint64       `json:"gaps"`
}

type AccountBalanceResponse struct {
	Address common.Address `json:"address"`
	Balance string         `json:"balance"` // wei, decimal
}

// ParseAddress validates a hex address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, gwerr.Newf(gwerr.KindInvalidInput, "types.address", "%q is not a hex address", s)
	}

	return common.HexToAddress(s), nil
}

// ParseHash validates a 32 byte hex transaction hash.
func ParseHash(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	if len(strings.TrimPrefix(s, "0x")) != 2*common.HashLength {
		return common.Hash{}, gwerr.Newf(gwerr.KindInvalidInput, "types.hash", "%q is not a transaction hash", s)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return common.Hash{}, gwerr.Newf(gwerr.KindInvalidInput, "types.hash", "%q is not a transaction hash", s)
	}

	return common.BytesToHash(b), nil
}

func requireKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return gwerr.New(gwerr.KindInvalidKey, "types.privateKey", "private_key is required")
	}

	return nil
}
