package cipher

import "encoding/hex"

// nibble maps an ASCII hex digit to its value. ok is false for bytes outside
// 0-9, a-f and A-F.
func nibble(c byte) (v byte, ok bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// DecodeHex packs ASCII hex digit pairs into bytes, high nibble first.
//
// Decoding never fails: a byte that is not a hex digit decodes as nibble 0 and
// an unpaired trailing digit is dropped, so the result always has
// len(src)/2 bytes. Use DecodeHexStrict to reject such input instead.
func DecodeHex(src []byte) []byte {
	dst := make([]byte, len(src)/2)
	for i := range dst {
		hi, _ := nibble(src[2*i])
		lo, _ := nibble(src[2*i+1])
		dst[i] = hi<<4 | lo
	}
	return dst
}

// DecodeHexStrict decodes like DecodeHex but returns a *HexError wrapping
// ErrInvalidHexDigit or ErrOddLength instead of degrading.
func DecodeHexStrict(src []byte) ([]byte, error) {
	if len(src)%2 != 0 {
		return nil, &HexError{Pos: len(src), Err: ErrOddLength}
	}
	for i, c := range src {
		if _, ok := nibble(c); !ok {
			return nil, &HexError{Pos: i, Byte: c, Err: ErrInvalidHexDigit}
		}
	}
	return DecodeHex(src), nil
}

// EncodeHex returns the lowercase hex text of src.
func EncodeHex(src []byte) []byte {
	dst := make([]byte, hex.EncodedLen(len(src)))
	hex.Encode(dst, src)
	return dst
}
