package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
	"github/chapool/contract-gateway/internal/gateway/signer"
)

// RawPayload is a transaction whose shape the caller controls. Nil fields
// are absent from the payload.
type RawPayload struct {
	From                 *common.Address
	To                   *common.Address
	Data                 []byte
	Value                *big.Int
	Gas                  uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Nonce                *uint64
	ChainID              *big.Int

	// Signed is set when the payload already carries a signature; its bytes
	// are submitted verbatim.
	Signed *types.Transaction
}

// rawJSON is the transaction dictionary form of a payload.
type rawJSON struct {
	From                 *common.Address `json:"from"`
	To                   *common.Address `json:"to"`
	Data                 *hexutil.Bytes  `json:"data"`
	Input                *hexutil.Bytes  `json:"input"`
	Value                *quantity       `json:"value"`
	Gas                  *quantity       `json:"gas"`
	GasPrice             *quantity       `json:"gasPrice"`
	MaxFeePerGas         *quantity       `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *quantity       `json:"maxPriorityFeePerGas"`
	Nonce                *quantity       `json:"nonce"`
	ChainID              *quantity       `json:"chainId"`
}

// quantity accepts a JSON number, a decimal string or a 0x hex string.
type quantity struct {
	value *big.Int
}

func (q *quantity) UnmarshalJSON(input []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(input)), `"`)
	if s == "" || s == "null" {
		return nil
	}

	v, ok := math.ParseBig256(s)
	if !ok {
		return gwerr.Newf(gwerr.KindInvalidInput, "gateway.parseRaw", "invalid quantity %q", s)
	}

	q.value = v
	return nil
}

func (q *quantity) big() *big.Int {
	if q == nil {
		return nil
	}
	return q.value
}

// ParseRawPayload accepts either a JSON transaction dictionary
// ({"to", "data", "value", "gas", "gasPrice", "maxFeePerGas",
// "maxPriorityFeePerGas", "nonce", "chainId"}) or a hex encoded transaction,
// signed or not.
func ParseRawPayload(payload string) (*RawPayload, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, gwerr.New(gwerr.KindInvalidInput, "gateway.parseRaw", "raw transaction payload is empty")
	}

	if strings.HasPrefix(payload, "{") {
		return parseRawJSON(payload)
	}

	return parseRawEncoded(payload)
}

func parseRawJSON(payload string) (*RawPayload, error) {
	var body rawJSON
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return nil, gwerr.Wrap(err, gwerr.KindInvalidInput, "gateway.parseRaw", "invalid transaction dictionary")
	}

	out := &RawPayload{
		From:                 body.From,
		To:                   body.To,
		Value:                body.Value.big(),
		GasPrice:             body.GasPrice.big(),
		MaxFeePerGas:         body.MaxFeePerGas.big(),
		MaxPriorityFeePerGas: body.MaxPriorityFeePerGas.big(),
		ChainID:              body.ChainID.big(),
	}

	switch {
	case body.Data != nil:
		out.Data = *body.Data
	case body.Input != nil:
		out.Data = *body.Input
	}

	if gas := body.Gas.big(); gas != nil {
		if !gas.IsUint64() {
			return nil, gwerr.New(gwerr.KindInvalidInput, "gateway.parseRaw", "gas does not fit in 64 bits")
		}
		out.Gas = gas.Uint64()
	}

	if n := body.Nonce.big(); n != nil {
		if !n.IsUint64() {
			return nil, gwerr.New(gwerr.KindInvalidInput, "gateway.parseRaw", "nonce does not fit in 64 bits")
		}
		nonce := n.Uint64()
		out.Nonce = &nonce
	}

	return out, nil
}

func parseRawEncoded(payload string) (*RawPayload, error) {
	if !strings.HasPrefix(payload, "0x") && !strings.HasPrefix(payload, "0X") {
		payload = "0x" + payload
	}

	encoded, err := hexutil.Decode(payload)
	if err != nil {
		return nil, gwerr.Wrap(err, gwerr.KindInvalidInput, "gateway.parseRaw", "raw transaction is not valid hex")
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(encoded); err != nil {
		return nil, gwerr.Wrap(err, gwerr.KindInvalidInput, "gateway.parseRaw", "failed to decode transaction")
	}

	n := tx.Nonce()
	out := &RawPayload{
		To:    tx.To(),
		Data:  tx.Data(),
		Value: tx.Value(),
		Gas:   tx.Gas(),
		Nonce: &n,
	}

	if v, r, s := tx.RawSignatureValues(); r.Sign() != 0 || s.Sign() != 0 || v.Sign() != 0 {
		out.Signed = tx
	}

	switch tx.Type() {
	case types.LegacyTxType:
		out.GasPrice = tx.GasPrice()
		// An unsigned legacy envelope carries no chain id.
		if out.Signed != nil && tx.Protected() {
			out.ChainID = tx.ChainId()
		}
	case types.DynamicFeeTxType:
		out.MaxFeePerGas = tx.GasFeeCap()
		out.MaxPriorityFeePerGas = tx.GasTipCap()
		out.ChainID = tx.ChainId()
	default:
		if out.Signed == nil {
			return nil, gwerr.Newf(gwerr.KindInvalidInput, "gateway.parseRaw",
				"unsigned transaction type %d is not supported", tx.Type())
		}
		out.ChainID = tx.ChainId()
	}

	return out, nil
}

// ExecuteRaw runs the lifecycle for a caller-shaped transaction. Fields are
// not filled in: gas and a price are required. An embedded nonce is
// reconciled with the sequencer instead of allocating one.
func (g *Gateway) ExecuteRaw(ctx context.Context, privateKey string, payload *RawPayload) (*Outcome, error) {
	if payload == nil {
		return nil, gwerr.New(gwerr.KindInvalidInput, "gateway.executeRaw", "payload is required")
	}

	return g.schedule(ctx, func(ctx context.Context, logger zerolog.Logger) (*Outcome, error) {
		return g.executeRaw(ctx, logger.With().Bool("raw", true).Logger(), privateKey, payload)
	})
}

func (g *Gateway) executeRaw(ctx context.Context, logger zerolog.Logger, privateKey string, payload *RawPayload) (*Outcome, error) {
	started := time.Now()

	from, err := g.signer.Address(ctx, privateKey)
	if err != nil {
		return nil, g.refuse(err)
	}
	logger = logger.With().Str("from", from.Hex()).Logger()

	if payload.From != nil && *payload.From != from {
		return nil, g.refuse(gwerr.New(gwerr.KindInvalidInput, "gateway.executeRaw", "from does not match private key"))
	}

	chainID, err := g.resolveChainID(ctx, logger)
	if err != nil {
		return nil, g.refuse(err)
	}

	if payload.ChainID != nil && payload.ChainID.Sign() != 0 && payload.ChainID.Cmp(chainID) != 0 {
		return nil, g.refuse(gwerr.Newf(gwerr.KindInvalidInput, "gateway.executeRaw",
			"payload chain id %s does not match provider chain id %s", payload.ChainID, chainID))
	}

	if payload.Signed != nil {
		signed, err := signer.FromTransaction(payload.Signed)
		if err != nil {
			return nil, g.refuse(err)
		}
		if signed.From() != from {
			return nil, g.refuse(gwerr.New(gwerr.KindInvalidInput, "gateway.executeRaw",
				"payload is signed by a different account"))
		}

		if err := g.reconcileNonce(ctx, logger, from, signed.Nonce()); err != nil {
			return nil, g.refuse(err)
		}

		return g.run(ctx, logger, signed, lifecycle{
			deployment: payload.Signed.To() == nil,
			reconciled: true,
			started:    started,
		})
	}

	if payload.Gas == 0 {
		return nil, g.refuse(gwerr.New(gwerr.KindInvalidInput, "gateway.executeRaw", "gas is required"))
	}
	if payload.GasPrice == nil && payload.MaxFeePerGas == nil {
		return nil, g.refuse(gwerr.New(gwerr.KindInvalidInput, "gateway.executeRaw", "gasPrice or maxFeePerGas is required"))
	}

	unsigned := &signer.Request{
		ChainID:   chainID,
		From:      from,
		To:        payload.To,
		Data:      payload.Data,
		Value:     payload.Value,
		GasLimit:  payload.Gas,
		GasPrice:  payload.GasPrice,
		GasFeeCap: payload.MaxFeePerGas,
		GasTipCap: payload.MaxPriorityFeePerGas,
	}

	lc := lifecycle{deployment: payload.To == nil, started: started}
	if payload.Nonce != nil {
		if err := g.reconcileNonce(ctx, logger, from, *payload.Nonce); err != nil {
			return nil, g.refuse(err)
		}
		unsigned.Nonce = *payload.Nonce
		lc.reconciled = true
	} else {
		n, err := g.allocate(ctx, logger, from)
		if err != nil {
			return nil, g.refuse(err)
		}
		unsigned.Nonce = n
	}

	return g.signAndRun(ctx, logger, privateKey, unsigned, lc)
}
