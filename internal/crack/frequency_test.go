package crack

import (
	"errors"
	"math"
	"strings"
	"testing"
	"testing/iotest"
)

func TestEnglishTableSumsToOne(t *testing.T) {
	var sum float64
	for _, f := range English {
		sum += f
	}
	if math.Abs(sum-1) > 0.001 {
		t.Fatalf("expected reference frequencies to sum to 1, got %f", sum)
	}
	if English.Freq('E') != English.Freq('e') || English.Freq('e') != 0.12702 {
		t.Errorf("unexpected frequency for e: %f", English.Freq('e'))
	}
	if English.Freq('!') != 0 {
		t.Errorf("non-letters should have zero frequency")
	}
}

func TestObserve(t *testing.T) {
	c := Observe([]byte("Hello, World!"))
	if c.Total != 10 {
		t.Errorf("expected 10 letters, got %d", c.Total)
	}
	if c.Invalid != 3 {
		t.Errorf("expected 3 invalid bytes, got %d", c.Invalid)
	}
	if c.Letters['l'-'a'] != 3 || c.Letters['h'-'a'] != 1 {
		t.Errorf("unexpected letter counts: %v", c.Letters)
	}

	table, ok := c.Table()
	if !ok {
		t.Fatal("expected a table for input with letters")
	}
	var sum float64
	for _, f := range table {
		sum += f
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("observed frequencies should sum to 1, got %f", sum)
	}

	if _, ok := Observe([]byte("1234")).Table(); ok {
		t.Error("expected no table for input without letters")
	}
}

func TestScoreWithoutLetters(t *testing.T) {
	for _, input := range []string{"", "123 !", "\x00\xff\x80"} {
		if got := Score([]byte(input)); got != MaxScore {
			t.Errorf("Score(%q) = %g, want MaxScore", input, got)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	for n := 1; n <= 64; n *= 2 {
		if got := Score([]byte(strings.Repeat("a", n))); got < 0 {
			t.Errorf("all-a input of length %d scored %f", n, got)
		}
	}

	sentence := "itwasthebestoftimesitwastheworstoftimes"
	allE := strings.Repeat("e", len(sentence))
	if Score([]byte(allE)) <= Score([]byte(sentence)) {
		t.Errorf("all-e (%f) should score worse than English (%f)",
			Score([]byte(allE)), Score([]byte(sentence)))
	}
}

func TestScoreCountsInvalidBytes(t *testing.T) {
	letters := Score([]byte("abc"))
	withSpaces := Score([]byte("a b c"))
	if math.Abs(withSpaces-letters-2) > 1e-9 {
		t.Errorf("expected two spaces to add exactly 2, got %f vs %f", withSpaces, letters)
	}
	if Score([]byte("ABC")) != letters {
		t.Error("scoring should ignore case")
	}
}

func TestScorerCustomReference(t *testing.T) {
	var onlyZ FrequencyTable
	onlyZ['z'-'a'] = 1

	s := Scorer{Reference: onlyZ}
	if got := s.Score([]byte("zzzz")); got != 0 {
		t.Errorf("expected perfect score, got %f", got)
	}
	if got := s.Score([]byte("aaaa")); got != 2 {
		t.Errorf("expected distance 2, got %f", got)
	}
}

func TestTableFromSample(t *testing.T) {
	table, err := TableFromSample(strings.NewReader("a a b!"))
	if err != nil {
		t.Fatalf("TableFromSample failed: %v", err)
	}
	if math.Abs(table['a'-'a']-2.0/3) > 1e-9 || math.Abs(table['b'-'a']-1.0/3) > 1e-9 {
		t.Errorf("unexpected table: %v", table)
	}

	if _, err := TableFromSample(strings.NewReader("42")); err == nil {
		t.Error("expected error for sample without letters")
	}

	boom := errors.New("boom")
	if _, err := TableFromSample(iotest.ErrReader(boom)); !errors.Is(err, boom) {
		t.Errorf("expected read error to be wrapped, got %v", err)
	}
}
