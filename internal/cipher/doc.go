// Package cipher implements the byte transcoders used to attack XOR
// ciphertext: hex decoding, base64 encoding and buffer XOR.
//
// # Transcoders
//
//	raw := cipher.DecodeHex([]byte("49276d206b696c6c"))
//	b64 := cipher.EncodeBase64(raw)
//	out := cipher.XOR(a, b)
//
// DecodeHex and XOR never fail. A byte that is not a hex digit decodes as
// zero, an unpaired trailing digit is dropped and XOR of unequal buffers is
// truncated to the shorter one. DecodeHexStrict and XORStrict report those
// cases as ErrInvalidHexDigit, ErrOddLength and ErrLengthMismatch.
//
// # Operations and pipelines
//
// Every transcoder is also registered as a named Operation so it can be
// chained:
//
//	pipeline := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: "hex_decode"},
//	        {Name: "base64_encode"},
//	    },
//	    Reversible: true,
//	}
//	encoded, _ := pipeline.Execute(ctx, input)
//	reversed, _ := pipeline.Reverse()
//
// Registered operations:
//   - hex_encode/hex_decode - hexadecimal text (hex_decode accepts "strict")
//   - base64_encode/base64_decode - standard padded Base64
//   - xor - XOR with a hex "key" of equal length (accepts "strict")
//   - single_byte_xor - XOR with a single "key" byte
//
// The crack package adds crack_single_byte_xor.
//
// # Recipes
//
// RecipeManager saves pipelines by name as YAML files so they can be reused
// from the command line.
//
// # Thread Safety
//
// Registries and RecipeManager lock internally. Operations are stateless.
package cipher
