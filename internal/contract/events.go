package contract

import (
	"context"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github/chapool/contract-gateway/internal/chain"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

// BlockTag is a block number or "latest", resolved against the chain head
// when the query runs.
type BlockTag struct {
	Latest bool
	Number uint64
}

// Latest is the current chain head.
var Latest = BlockTag{Latest: true}

// Block is a fixed block number.
func Block(n uint64) BlockTag {
	return BlockTag{Number: n}
}

func (b BlockTag) String() string {
	if b.Latest {
		return "latest"
	}
	return strconv.FormatUint(b.Number, 10)
}

// ParseBlockTag parses "latest", "earliest", a decimal or a 0x hex number.
// An empty string yields def.
func ParseBlockTag(s string, def BlockTag) (BlockTag, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	switch s {
	case "":
		return def, nil
	case "latest":
		return Latest, nil
	case "earliest":
		return Block(0), nil
	}

	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return BlockTag{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.blockTag", "invalid block %q", s)
	}

	return Block(n), nil
}

// Event is a decoded log entry.
type Event struct {
	Event            string         `json:"event"`
	Args             map[string]any `json:"args"`
	Address          common.Address `json:"address"`
	BlockNumber      uint64         `json:"block_number"`
	BlockHash        common.Hash    `json:"block_hash"`
	TransactionHash  common.Hash    `json:"transaction_hash"`
	TransactionIndex uint           `json:"transaction_index"`
	LogIndex         uint           `json:"log_index"`
}

// GetEvents returns the eventName logs emitted by the contract in
// [from, to]. A range with from after to is empty, not an error.
func (f *Facade) GetEvents(ctx context.Context, d Descriptor, eventName string, from BlockTag, to BlockTag) ([]Event, error) {
	event, ok := d.ABI.Events[eventName]
	if !ok {
		return nil, gwerr.Newf(gwerr.KindUnknownEvent, "contract.events",
			"event %q is not defined by the contract interface", eventName)
	}
	if d.Address == (common.Address{}) {
		return nil, gwerr.New(gwerr.KindInvalidInput, "contract.events", "contract address is required")
	}

	fromBlock, toBlock, err := f.resolveRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	events := []Event{}
	if fromBlock > toBlock {
		return events, nil
	}

	logs, err := f.adapter.GetLogs(ctx, chain.LogQuery{
		Address:   d.Address,
		EventID:   event.ID,
		FromBlock: fromBlock,
		ToBlock:   toBlock,
	})
	if err != nil {
		return nil, err
	}

	for _, l := range logs {
		decoded, err := decodeLog(event, l)
		if err != nil {
			return nil, err
		}
		events = append(events, decoded)
	}

	f.logger.Debug().
		Str("event", eventName).
		Uint64("from_block", fromBlock).
		Uint64("to_block", toBlock).
		Int("count", len(events)).
		Msg("Fetched contract events")

	return events, nil
}

func (f *Facade) resolveRange(ctx context.Context, from BlockTag, to BlockTag) (uint64, uint64, error) {
	if !from.Latest && !to.Latest {
		return from.Number, to.Number, nil
	}

	head, err := f.adapter.LatestBlock(ctx)
	if err != nil {
		return 0, 0, err
	}

	fromBlock, toBlock := from.Number, to.Number
	if from.Latest {
		fromBlock = head
	}
	if to.Latest {
		toBlock = head
	}

	return fromBlock, toBlock, nil
}

func decodeLog(event abi.Event, l types.Log) (Event, error) {
	if len(l.Topics) == 0 || l.Topics[0] != event.ID {
		return Event{}, gwerr.Newf(gwerr.KindDecodeError, "contract.decodeLog",
			"log %d of %s is not a %s event", l.Index, l.TxHash.Hex(), event.Name)
	}

	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(l.Topics)-1 != len(indexed) {
		return Event{}, gwerr.Newf(gwerr.KindDecodeError, "contract.decodeLog",
			"%s expects %d indexed topics, log has %d", event.Name, len(indexed), len(l.Topics)-1)
	}

	args := make(map[string]any, len(event.Inputs))
	if err := event.Inputs.NonIndexed().UnpackIntoMap(args, l.Data); err != nil {
		return Event{}, gwerr.Wrap(err, gwerr.KindDecodeError, "contract.decodeLog", "failed to decode "+event.Name+" data")
	}
	if err := abi.ParseTopicsIntoMap(args, indexed, l.Topics[1:]); err != nil {
		return Event{}, gwerr.Wrap(err, gwerr.KindDecodeError, "contract.decodeLog", "failed to decode "+event.Name+" topics")
	}

	for k, v := range args {
		args[k] = normalize(v)
	}

	return Event{
		Event:            event.Name,
		Args:             args,
		Address:          l.Address,
		BlockNumber:      l.BlockNumber,
		BlockHash:        l.BlockHash,
		TransactionHash:  l.TxHash,
		TransactionIndex: l.TxIndex,
		LogIndex:         l.Index,
	}, nil
}
