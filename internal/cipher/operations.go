package cipher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Hex Operations

// HexEncodeOp encodes bytes as lowercase hexadecimal text
type HexEncodeOp struct {
	BaseOperation
}

func (op *HexEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return EncodeHex(input), nil
}

// HexDecodeOp decodes hexadecimal text. Surrounding whitespace is ignored.
// With the "strict" parameter set, malformed digits and odd lengths are
// errors; otherwise they degrade as described on DecodeHex.
type HexDecodeOp struct {
	BaseOperation
}

func (op *HexDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	input = bytes.TrimSpace(input)
	if BoolParam(params, "strict") {
		decoded, err := DecodeHexStrict(input)
		if err != nil {
			return nil, fmt.Errorf("hex decode failed: %w", err)
		}
		return decoded, nil
	}
	return DecodeHex(input), nil
}

// Base64 Operations

// Base64EncodeOp encodes data as standard Base64
type Base64EncodeOp struct {
	BaseOperation
}

func (op *Base64EncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return EncodeBase64(input), nil
}

// Base64DecodeOp decodes standard Base64 data
type Base64DecodeOp struct {
	BaseOperation
}

func (op *Base64DecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return DecodeBase64(bytes.TrimSpace(input))
}

// XOR Operations

// FixedXOROp combines the input with the hex-encoded "key" parameter
type FixedXOROp struct {
	BaseOperation
}

func (op *FixedXOROp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	keyHex, ok := StringParam(params, "key")
	if !ok || keyHex == "" {
		return nil, errors.New("key parameter required for xor")
	}
	strict := BoolParam(params, "strict")

	var key []byte
	if strict {
		var err error
		if key, err = DecodeHexStrict([]byte(keyHex)); err != nil {
			return nil, fmt.Errorf("xor key: %w", err)
		}
		return XORStrict(input, key)
	}
	key = DecodeHex([]byte(keyHex))
	return XOR(input, key), nil
}

// SingleByteXOROp combines every input byte with the "key" parameter
type SingleByteXOROp struct {
	BaseOperation
}

func (op *SingleByteXOROp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	k, err := ByteParam(params, "key")
	if err != nil {
		return nil, err
	}
	return XORByte(input, k), nil
}

// BoolParam reads a boolean parameter. Missing or malformed values are false.
func BoolParam(params map[string]interface{}, name string) bool {
	switch v := params[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// StringParam reads a string parameter.
func StringParam(params map[string]interface{}, name string) (string, bool) {
	v, ok := params[name].(string)
	return v, ok
}

// ByteParam reads a single key byte given as a number in 0-255, as a
// one-character string, or as a longer numeric string such as "88" or "0x58".
func ByteParam(params map[string]interface{}, name string) (byte, error) {
	raw, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("%s parameter required", name)
	}

	var n float64
	switch v := raw.(type) {
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint8:
		return v, nil
	case float64:
		n = v
	case string:
		if len(v) == 1 {
			return v[0], nil
		}
		k, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return 0, fmt.Errorf("%s parameter must be a character or a byte value, got %q", name, v)
		}
		return byte(k), nil
	default:
		return 0, fmt.Errorf("%s parameter has unsupported type %T", name, raw)
	}

	if n < 0 || n > math.MaxUint8 || n != math.Trunc(n) {
		return 0, fmt.Errorf("%s parameter out of byte range: %v", name, n)
	}
	return byte(n), nil
}

// init registers the transcoding operations
func init() {
	hexEncode := &HexEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode bytes as hexadecimal text",
		},
	}
	hexDecode := &HexDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode hexadecimal text to bytes",
		},
	}
	hexEncode.ReverseOp = hexDecode
	hexDecode.ReverseOp = hexEncode

	base64Encode := &Base64EncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode data as standard Base64",
		},
	}
	base64Decode := &Base64DecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode standard Base64 data",
		},
	}
	base64Encode.ReverseOp = base64Decode
	base64Decode.ReverseOp = base64Encode

	// XOR is its own inverse.
	fixedXOR := &FixedXOROp{
		BaseOperation: BaseOperation{
			NameValue:        "xor",
			TypeValue:        OperationTypeXOR,
			DescriptionValue: "XOR with a hex-encoded key of the same length",
		},
	}
	fixedXOR.ReverseOp = fixedXOR

	singleXOR := &SingleByteXOROp{
		BaseOperation: BaseOperation{
			NameValue:        "single_byte_xor",
			TypeValue:        OperationTypeXOR,
			DescriptionValue: "XOR every byte with a single key byte",
		},
	}
	singleXOR.ReverseOp = singleXOR

	MustRegisterOperation(hexEncode)
	MustRegisterOperation(hexDecode)
	MustRegisterOperation(base64Encode)
	MustRegisterOperation(base64Decode)
	MustRegisterOperation(fixedXOR)
	MustRegisterOperation(singleXOR)
}
