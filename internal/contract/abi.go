// Package contract encodes smart contract call data with the Ethereum ABI,
// which the ledger's EVM uses for function parameters.
package contract

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Param is one typed argument as a dapp sends it, e.g.
// {"type":"uint256","value":"1000"}.
type Param struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

var bigIntType = reflect.TypeOf(&big.Int{})

// EncodeArgs ABI-encodes params without a function selector, as used for
// constructor parameters.
func EncodeArgs(params []Param) ([]byte, error) {
	args, values, err := convert(params)
	if err != nil {
		return nil, err
	}
	return args.Pack(values...)
}

// EncodeCall returns the 4-byte selector of function followed by the encoded
// params.
func EncodeCall(function string, params []Param) ([]byte, error) {
	if function == "" {
		return nil, fmt.Errorf("function name is required")
	}
	args, values, err := convert(params)
	if err != nil {
		return nil, err
	}
	packed, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", function, err)
	}
	return append(Selector(function, args), packed...), nil
}

// Selector hashes the canonical signature, e.g. transfer(address,uint256).
func Selector(function string, args abi.Arguments) []byte {
	types := make([]string, len(args))
	for i, a := range args {
		types[i] = a.Type.String()
	}
	signature := function + "(" + strings.Join(types, ",") + ")"
	return crypto.Keccak256([]byte(signature))[:4]
}

func convert(params []Param) (abi.Arguments, []any, error) {
	args := make(abi.Arguments, 0, len(params))
	values := make([]any, 0, len(params))
	for i, p := range params {
		typ, err := abi.NewType(p.Type, "", nil)
		if err != nil {
			return nil, nil, fmt.Errorf("param %d: unknown type %q: %w", i, p.Type, err)
		}
		v, err := coerce(typ, p.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("param %d (%s): %w", i, p.Type, err)
		}
		args = append(args, abi.Argument{Type: typ})
		values = append(values, v)
	}
	return args, values, nil
}

// coerce turns a JSON-decoded value into the Go type the ABI packer expects.
func coerce(typ abi.Type, value any) (any, error) {
	switch typ.T {
	case abi.AddressTy:
		s, ok := value.(string)
		if !ok || !common.IsHexAddress(s) {
			return nil, fmt.Errorf("expected a hex address, got %v", value)
		}
		return common.HexToAddress(s), nil
	case abi.BoolTy:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %v", value)
		}
		return b, nil
	case abi.StringTy:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %v", value)
		}
		return s, nil
	case abi.BytesTy:
		return hexBytes(value)
	case abi.FixedBytesTy:
		raw, err := hexBytes(value)
		if err != nil {
			return nil, err
		}
		if len(raw) > typ.Size {
			return nil, fmt.Errorf("%d bytes do not fit bytes%d", len(raw), typ.Size)
		}
		arr := reflect.New(typ.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(raw))
		return arr.Interface(), nil
	case abi.UintTy, abi.IntTy:
		n, err := integer(value)
		if err != nil {
			return nil, err
		}
		if typ.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative value for unsigned type")
		}
		if overflows(n, typ) {
			return nil, fmt.Errorf("value %s overflows %s", n, typ.String())
		}
		goType := typ.GetType()
		if goType == bigIntType {
			return n, nil
		}
		v := reflect.New(goType).Elem()
		if typ.T == abi.UintTy {
			v.SetUint(n.Uint64())
		} else {
			v.SetInt(n.Int64())
		}
		return v.Interface(), nil
	default:
		return nil, fmt.Errorf("type %s is not supported", typ.String())
	}
}

func overflows(n *big.Int, typ abi.Type) bool {
	if typ.T == abi.UintTy {
		return n.BitLen() > typ.Size
	}
	magnitude := n
	if n.Sign() < 0 {
		// two's complement: -2^(k-1) is the smallest value of intk
		magnitude = new(big.Int).Add(n, big.NewInt(1))
	}
	return magnitude.BitLen() > typ.Size-1
}

func hexBytes(value any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected hex bytes, got %v", value)
	}
	out, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return out, nil
}

func integer(value any) (*big.Int, error) {
	switch v := value.(type) {
	case string:
		n, ok := new(big.Int).SetString(v, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	case json.Number:
		n, ok := new(big.Int).SetString(v.String(), 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	case float64:
		if v != float64(int64(v)) {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		return big.NewInt(int64(v)), nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("expected an integer, got %v", value)
	}
}
