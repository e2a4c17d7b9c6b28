package crack

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RowanDark/xorcrack/internal/cipher"
)

// Alphabet is the default set of candidate keys: upper case letters, lower
// case letters, digits and space, in that order.
var Alphabet = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789 ")

// FullAlphabet sweeps every byte value.
var FullAlphabet = func() []byte {
	keys := make([]byte, 256)
	for i := range keys {
		keys[i] = byte(i)
	}
	return keys
}()

// AlphabetByName resolves "default" (or "") and "full".
func AlphabetByName(name string) ([]byte, error) {
	switch name {
	case "", "default":
		return Alphabet, nil
	case "full":
		return FullAlphabet, nil
	}
	return nil, fmt.Errorf("unknown alphabet %q", name)
}

// Candidate is one decryption attempt.
type Candidate struct {
	Key       byte    `json:"key"`
	Plaintext []byte  `json:"plaintext"`
	Score     float64 `json:"score"`
}

// Searcher brute-forces single-byte XOR keys.
type Searcher struct {
	scorer   Scorer
	alphabet []byte
}

// NewSearcher returns a Searcher trying every key of alphabet in order.
func NewSearcher(scorer Scorer, alphabet []byte) (*Searcher, error) {
	if len(alphabet) == 0 {
		return nil, errors.New("empty key alphabet")
	}
	keys := make([]byte, len(alphabet))
	copy(keys, alphabet)
	return &Searcher{scorer: scorer, alphabet: keys}, nil
}

// DefaultSearcher scores against English over Alphabet.
var DefaultSearcher = &Searcher{scorer: DefaultScorer, alphabet: Alphabet}

func (s *Searcher) try(ciphertext []byte, k byte) Candidate {
	plaintext := cipher.XORByte(ciphertext, k)
	return Candidate{Key: k, Plaintext: plaintext, Score: s.scorer.Score(plaintext)}
}

// Crack returns the lowest scoring candidate. On equal scores the key that
// comes first in the alphabet wins.
func (s *Searcher) Crack(ciphertext []byte) Candidate {
	best := s.try(ciphertext, s.alphabet[0])
	for _, k := range s.alphabet[1:] {
		if c := s.try(ciphertext, k); c.Score < best.Score {
			best = c
		}
	}
	return best
}

// Rank returns the n best candidates, best first. Equal scores keep alphabet
// order. n <= 0 or n beyond the alphabet size returns every candidate.
func (s *Searcher) Rank(ciphertext []byte, n int) []Candidate {
	all := make([]Candidate, len(s.alphabet))
	for i, k := range s.alphabet {
		all[i] = s.try(ciphertext, k)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Score < all[j].Score })
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// Detect cracks every ciphertext and returns the index and candidate of the
// one that decrypts to the most English-like plaintext. Earlier lines win
// ties. It fails only when lines is empty.
func (s *Searcher) Detect(lines [][]byte) (int, Candidate, error) {
	if len(lines) == 0 {
		return 0, Candidate{}, errors.New("no ciphertexts to search")
	}
	index, best := 0, s.Crack(lines[0])
	for i, line := range lines[1:] {
		if c := s.Crack(line); c.Score < best.Score {
			index, best = i+1, c
		}
	}
	return index, best, nil
}

// Crack recovers a single-byte XOR key with DefaultSearcher.
func Crack(ciphertext []byte) Candidate {
	return DefaultSearcher.Crack(ciphertext)
}
