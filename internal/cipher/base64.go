package cipher

import (
	"encoding/base64"
	"fmt"
)

// padSentinel is any 6-bit group value outside the alphabet; it encodes as '='.
const padSentinel = 64

// base64Symbol maps a 6-bit group to the standard alphabet.
func base64Symbol(v byte) byte {
	switch {
	case v <= 25:
		return 'A' + v
	case v <= 51:
		return 'a' + (v - 26)
	case v <= 61:
		return '0' + (v - 52)
	case v == 62:
		return '+'
	case v == 63:
		return '/'
	}
	return '='
}

// EncodeBase64 returns the standard (RFC 4648, padded) base64 text of src.
// The output length is always 4*ceil(len(src)/3).
func EncodeBase64(src []byte) []byte {
	dst := make([]byte, 0, (len(src)+2)/3*4)
	for i := 0; i < len(src); i += 3 {
		n := len(src) - i
		if n > 3 {
			n = 3
		}

		var word uint32
		for j := 0; j < 3; j++ {
			word <<= 8
			if j < n {
				word |= uint32(src[i+j])
			}
		}

		groups := [4]byte{
			byte(word>>18) & 0x3f,
			byte(word>>12) & 0x3f,
			byte(word>>6) & 0x3f,
			byte(word) & 0x3f,
		}
		// A block with n input bytes carries n+1 meaningful groups.
		for g := n + 1; g < 4; g++ {
			groups[g] = padSentinel
		}
		for _, g := range groups {
			dst = append(dst, base64Symbol(g))
		}
	}
	return dst
}

// DecodeBase64 decodes standard padded base64 text.
func DecodeBase64(src []byte) ([]byte, error) {
	dst := make([]byte, base64.StdEncoding.DecodedLen(len(src)))
	n, err := base64.StdEncoding.Decode(dst, src)
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	return dst[:n], nil
}
