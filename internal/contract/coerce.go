package contract

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// coerceArgs converts loosely typed arguments (decoded JSON or CLI strings)
// into the Go values abi.Arguments.Pack expects.
func coerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(args) != len(inputs) {
		return nil, gwerr.Newf(gwerr.KindInvalidInput, "contract.args",
			"expected %d arguments, got %d", len(inputs), len(args))
	}

	out := make([]any, len(args))
	for i, input := range inputs {
		v, err := coerce(input.Type, args[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			return nil, gwerr.Wrap(err, gwerr.KindInvalidInput, "contract.args", "argument "+name)
		}
		out[i] = v.Interface()
	}

	return out, nil
}

//nolint:cyclop,gocyclo // one case per ABI type
func coerce(t abi.Type, v any) (reflect.Value, error) {
	switch t.T {
	case abi.IntTy, abi.UintTy:
		return coerceInteger(t, v)

	case abi.BoolTy:
		switch b := v.(type) {
		case bool:
			return reflect.ValueOf(b), nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return reflect.Value{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%q is not a bool", b)
			}
			return reflect.ValueOf(parsed), nil
		}

	case abi.StringTy:
		if s, ok := v.(string); ok {
			return reflect.ValueOf(s), nil
		}

	case abi.AddressTy:
		if s, ok := v.(string); ok && common.IsHexAddress(strings.TrimSpace(s)) {
			return reflect.ValueOf(common.HexToAddress(strings.TrimSpace(s))), nil
		}

	case abi.BytesTy:
		b, err := hexArg(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil

	case abi.FixedBytesTy:
		b, err := hexArg(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(b) > t.Size {
			return reflect.Value{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce",
				"%d bytes do not fit in bytes%d", len(b), t.Size)
		}
		out := reflect.New(t.GetType()).Elem()
		for i := range b {
			out.Index(i).SetUint(uint64(b[i]))
		}
		return out, nil

	case abi.SliceTy, abi.ArrayTy:
		items, err := listArg(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return coerceList(t, items)

	case abi.TupleTy:
		fields, err := objectArg(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t.GetType()).Elem()
		for i, elem := range t.TupleElems {
			name := t.TupleRawNames[i]
			raw, ok := fields[name]
			if !ok {
				return reflect.Value{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "tuple field %q is missing", name)
			}
			field, err := coerce(*elem, raw)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Field(i).Set(field)
		}
		return out, nil

	default:
		return reflect.Value{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "unsupported ABI type %s", t.String())
	}

	return reflect.Value{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%v is not a valid %s", v, t.String())
}

func coerceInteger(t abi.Type, v any) (reflect.Value, error) {
	n, err := toBigInt(v)
	if err != nil {
		return reflect.Value{}, err
	}

	if t.T == abi.UintTy && n.Sign() < 0 {
		return reflect.Value{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%s must not be negative", t.String())
	}
	if n.BitLen() > t.Size {
		return reflect.Value{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%s overflows %s", n, t.String())
	}

	goType := t.GetType()
	if goType == bigIntType {
		return reflect.ValueOf(n), nil
	}

	out := reflect.New(goType).Elem()
	if t.T == abi.UintTy {
		if !n.IsUint64() || out.OverflowUint(n.Uint64()) {
			return reflect.Value{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%s overflows %s", n, t.String())
		}
		out.SetUint(n.Uint64())
		return out, nil
	}

	if !n.IsInt64() || out.OverflowInt(n.Int64()) {
		return reflect.Value{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%s overflows %s", n, t.String())
	}
	out.SetInt(n.Int64())

	return out, nil
}

func coerceList(t abi.Type, items []any) (reflect.Value, error) {
	var out reflect.Value
	if t.T == abi.ArrayTy {
		if len(items) != t.Size {
			return reflect.Value{}, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce",
				"%s needs %d elements, got %d", t.String(), t.Size, len(items))
		}
		out = reflect.New(t.GetType()).Elem()
	} else {
		out = reflect.MakeSlice(t.GetType(), len(items), len(items))
	}

	for i, item := range items {
		elem, err := coerce(*t.Elem, item)
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(elem)
	}

	return out, nil
}

func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case json.Number:
		return parseInteger(n.String())
	case string:
		return parseInteger(n)
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%v is not an integer", n)
		}
		i, _ := big.NewFloat(n).Int(nil)
		return i, nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case *big.Int:
		return new(big.Int).Set(n), nil
	}

	return nil, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%v is not an integer", v)
}

func parseInteger(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, gwerr.New(gwerr.KindInvalidInput, "contract.coerce", "empty integer")
	}

	n, ok := ethmath.ParseBig256(s)
	if !ok {
		return nil, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%q is not an integer", s)
	}

	return n, nil
}

func hexArg(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%v is not a hex string", v)
	}

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, gwerr.Wrap(err, gwerr.KindInvalidInput, "contract.coerce", "invalid hex")
	}

	return b, nil
}

// listArg accepts a decoded JSON array or a string holding one, as passed
// on the command line.
func listArg(v any) ([]any, error) {
	switch list := v.(type) {
	case []any:
		return list, nil
	case string:
		var items []any
		if err := decodeJSON(list, &items); err != nil {
			return nil, gwerr.Wrap(err, gwerr.KindInvalidInput, "contract.coerce", "expected a JSON array")
		}
		return items, nil
	}

	return nil, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%v is not a list", v)
}

func objectArg(v any) (map[string]any, error) {
	switch obj := v.(type) {
	case map[string]any:
		return obj, nil
	case string:
		var fields map[string]any
		if err := decodeJSON(obj, &fields); err != nil {
			return nil, gwerr.Wrap(err, gwerr.KindInvalidInput, "contract.coerce", "expected a JSON object")
		}
		return fields, nil
	}

	return nil, gwerr.Newf(gwerr.KindInvalidInput, "contract.coerce", "%v is not an object", v)
}

func decodeJSON(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	return dec.Decode(v)
}
