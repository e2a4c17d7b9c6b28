// Package crack recovers single-byte XOR keys.
//
// Every candidate key is XORed against the ciphertext and the result is
// scored by Scorer: the count of non-letter bytes plus the summed absolute
// difference between the observed a-z distribution and English. The lowest
// score wins and ties go to the key tried first.
//
// Importing the package registers the crack_single_byte_xor operation with
// cipher.DefaultRegistry.
package crack
