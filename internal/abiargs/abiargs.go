// Package abiargs bridges loosely-typed caller input (CLI flags, JSON
// arrays) to the strictly-typed values the go-ethereum ABI encoder expects.
package abiargs

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Parse builds abi.Arguments from Solidity type names such as "address",
// "uint256" or "bytes32".
func Parse(typeNames []string) (abi.Arguments, error) {
	arguments := make(abi.Arguments, 0, len(typeNames))
	for _, name := range typeNames {
		typ, err := abi.NewType(strings.TrimSpace(name), "", nil)
		if err != nil {
			return nil, fmt.Errorf("invalid ABI type %q: %w", name, err)
		}
		arguments = append(arguments, abi.Argument{Type: typ})
	}

	return arguments, nil
}

// Coerce converts raw values (typically strings or json.Unmarshal output)
// into the Go representations the encoder requires for each argument type.
func Coerce(arguments abi.Arguments, raw []any) ([]any, error) {
	if len(arguments) != len(raw) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(arguments), len(raw))
	}

	values := make([]any, 0, len(raw))
	for i, arg := range arguments {
		value, err := coerceValue(arg.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values = append(values, value)
	}

	return values, nil
}

func coerceValue(typ abi.Type, raw any) (any, error) {
	switch typ.T {
	case abi.AddressTy:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("address value must be a hex string, got %T", raw)
		}
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address: %q", s)
		}
		return common.HexToAddress(s), nil

	case abi.UintTy, abi.IntTy:
		return coerceInteger(raw)

	case abi.BoolTy:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			return v == "true", nil
		default:
			return nil, fmt.Errorf("boolean value must be a bool or string, got %T", raw)
		}

	case abi.StringTy:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("string value expected, got %T", raw)
		}
		return s, nil

	case abi.BytesTy:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("bytes value must be a hex string, got %T", raw)
		}
		return common.FromHex(s), nil

	case abi.FixedBytesTy:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("bytes%d value must be a hex string, got %T", typ.Size, raw)
		}
		decoded := common.FromHex(s)
		if len(decoded) != typ.Size {
			return nil, fmt.Errorf("bytes%d value has %d bytes", typ.Size, len(decoded))
		}
		out := reflect.New(typ.GetType()).Elem()
		reflect.Copy(out, reflect.ValueOf(decoded))
		return out.Interface(), nil

	default:
		return nil, fmt.Errorf("unsupported ABI type: %s", typ.String())
	}
}

func coerceInteger(raw any) (*big.Int, error) {
	switch v := raw.(type) {
	case *big.Int:
		return v, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case float64:
		// json.Unmarshal produces float64 for numbers. Anything a float64
		// cannot hold exactly must be passed as a string.
		if v != math.Trunc(v) || math.Abs(v) >= 1<<53 {
			return nil, fmt.Errorf("number %v cannot be represented exactly, pass it as a string", v)
		}
		return new(big.Int).SetInt64(int64(v)), nil
	case string:
		value, ok := new(big.Int).SetString(strings.TrimPrefix(v, "0x"), baseFor(v))
		if !ok {
			return nil, fmt.Errorf("invalid integer: %q", v)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("integer value expected, got %T", raw)
	}
}

func baseFor(s string) int {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return 16
	}
	return 10
}
