package cipher

// XOR returns the element-wise XOR of a and b. When the lengths differ the
// result is truncated to the shorter operand; use XORStrict to reject that.
func XOR(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	dst := make([]byte, n)
	for i := 0; i < n; i++ {
		dst[i] = a[i] ^ b[i]
	}
	return dst
}

// XORStrict returns the element-wise XOR of two equal-length buffers.
func XORStrict(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, ErrLengthMismatch
	}
	return XOR(a, b), nil
}

// RepeatByte returns a key stream of n copies of k.
func RepeatByte(k byte, n int) []byte {
	stream := make([]byte, n)
	for i := range stream {
		stream[i] = k
	}
	return stream
}

// XORByte combines src with the single-byte key k.
func XORByte(src []byte, k byte) []byte {
	return XOR(src, RepeatByte(k, len(src)))
}
