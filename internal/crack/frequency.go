package crack

import (
	"fmt"
	"io"
	"math"
)

// MaxScore is returned for candidates that contain no letters at all.
const MaxScore = math.MaxFloat64

// FrequencyTable holds the relative frequency of each letter a-z, indexed by
// letter-'a'.
type FrequencyTable [26]float64

// English is the reference letter distribution of English text.
var English = FrequencyTable{
	0.08167, 0.01492, 0.02782, 0.04253, 0.12702, 0.02228, 0.02015, // a-g
	0.06094, 0.06966, 0.00153, 0.00772, 0.04025, 0.02406, 0.06749, // h-n
	0.07507, 0.01929, 0.00095, 0.05987, 0.06327, 0.09056, 0.02758, // o-u
	0.00978, 0.02360, 0.00150, 0.01974, 0.00074, // v-z
}

// Freq returns the frequency of letter, which may be upper or lower case.
// Non-letters have frequency 0.
func (t FrequencyTable) Freq(letter byte) float64 {
	if i, ok := letterIndex(letter); ok {
		return t[i]
	}
	return 0
}

// Distance is the sum of absolute differences between the two tables.
func (t FrequencyTable) Distance(other FrequencyTable) float64 {
	var d float64
	for i := range t {
		d += math.Abs(t[i] - other[i])
	}
	return d
}

// Counts is the letter census of a byte sequence.
type Counts struct {
	Letters [26]int
	Total   int // bytes counted in Letters
	Invalid int // bytes outside a-z after case folding
}

// Table normalises the letter counts. ok is false when no letters were seen.
func (c Counts) Table() (t FrequencyTable, ok bool) {
	if c.Total == 0 {
		return t, false
	}
	for i, n := range c.Letters {
		t[i] = float64(n) / float64(c.Total)
	}
	return t, true
}

// Observe counts the letters of b, folding upper case to lower case.
func Observe(b []byte) Counts {
	var c Counts
	for _, ch := range b {
		if i, ok := letterIndex(ch); ok {
			c.Letters[i]++
			c.Total++
			continue
		}
		c.Invalid++
	}
	return c
}

func letterIndex(ch byte) (int, bool) {
	if ch >= 'A' && ch <= 'Z' {
		ch += 'a' - 'A'
	}
	if ch < 'a' || ch > 'z' {
		return 0, false
	}
	return int(ch - 'a'), true
}

// TableFromSample builds a reference table from a sample corpus such as a
// book in the expected plaintext language.
func TableFromSample(r io.Reader) (FrequencyTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return FrequencyTable{}, fmt.Errorf("read sample: %w", err)
	}
	t, ok := Observe(data).Table()
	if !ok {
		return FrequencyTable{}, fmt.Errorf("sample of %d bytes contains no letters", len(data))
	}
	return t, nil
}

// Scorer rates how English-like a byte sequence is. Lower is better.
type Scorer struct {
	Reference FrequencyTable
}

// DefaultScorer scores against the English table.
var DefaultScorer = Scorer{Reference: English}

// Score returns the number of non-letter bytes plus the distance between the
// observed letter distribution and the reference. Input without letters
// scores MaxScore.
func (s Scorer) Score(candidate []byte) float64 {
	counts := Observe(candidate)
	observed, ok := counts.Table()
	if !ok {
		return MaxScore
	}
	return float64(counts.Invalid) + s.Reference.Distance(observed)
}

// Score rates candidate with DefaultScorer.
func Score(candidate []byte) float64 {
	return DefaultScorer.Score(candidate)
}
