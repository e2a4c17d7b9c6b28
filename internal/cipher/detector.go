package cipher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	hexPattern     = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	decimalPattern = regexp.MustCompile(`^[0-9]+$`)
	base64Pattern  = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)
)

const minimumConfidence = 0.3

// SmartDetector suggests which operation undoes the encoding of its input
type SmartDetector struct{}

// NewSmartDetector creates a new smart detector
func NewSmartDetector() *SmartDetector {
	return &SmartDetector{}
}

// Detect returns suggestions sorted by confidence, highest first. Results
// below 0.3 confidence are dropped.
func (d *SmartDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	if len(input) == 0 {
		return nil, errors.New("empty input")
	}

	var results []DetectionResult
	results = append(results, d.detectHex(input)...)
	results = append(results, d.detectBase64(input)...)
	results = append(results, d.detectXORCiphertext(input)...)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	filtered := results[:0]
	for _, r := range results {
		if r.Confidence >= minimumConfidence {
			filtered = append(filtered, r)
		}
	}

	return filtered, nil
}

// SupportedEncodings returns the encodings this detector can identify
func (d *SmartDetector) SupportedEncodings() []string {
	return []string{
		"hex",
		"base64",
		"single-byte-xor",
	}
}

// detectHex checks for an even-length run of hex digits
func (d *SmartDetector) detectHex(input []byte) []DetectionResult {
	inputStr := strings.TrimSpace(string(input))
	if !hexPattern.MatchString(inputStr) || len(inputStr)%2 != 0 {
		return nil
	}

	confidence := 0.85
	// All digits could just as well be a decimal number.
	if decimalPattern.MatchString(inputStr) {
		confidence *= 0.6
	}

	return []DetectionResult{{
		Encoding:   "hex",
		Confidence: confidence,
		Reasoning:  "Matches hexadecimal pattern with even length",
		Operation:  "hex_decode",
	}}
}

// detectBase64 checks for standard padded Base64
func (d *SmartDetector) detectBase64(input []byte) []DetectionResult {
	inputStr := strings.TrimSpace(string(input))
	if !base64Pattern.MatchString(inputStr) || len(inputStr)%4 != 0 {
		return nil
	}
	if _, err := DecodeBase64([]byte(inputStr)); err != nil {
		return nil
	}

	confidence := 0.9
	// Hex text is also valid Base64; without padding or Base64-only symbols
	// it is more likely hex.
	if hexPattern.MatchString(inputStr) {
		confidence = 0.4
	} else if !strings.HasSuffix(inputStr, "=") {
		confidence = 0.75
	}

	return []DetectionResult{{
		Encoding:   "base64",
		Confidence: confidence,
		Reasoning:  "Matches Base64 pattern and decodes successfully",
		Operation:  "base64_decode",
	}}
}

// detectXORCiphertext flags raw bytes that are mostly unprintable, which is
// what English text looks like after XOR with a single key byte
func (d *SmartDetector) detectXORCiphertext(input []byte) []DetectionResult {
	unprintable := 0
	for _, b := range input {
		if (b < 0x20 && b != '\n' && b != '\r' && b != '\t') || b >= 0x7f {
			unprintable++
		}
	}
	ratio := float64(unprintable) / float64(len(input))
	if ratio < 0.2 {
		return nil
	}

	// Single-byte XOR keeps the byte histogram shape of the plaintext, so
	// entropy stays well below that of random data.
	entropy := calculateEntropy(input)
	confidence := math.Min(0.3+ratio*0.5, 0.8)
	if entropy > 6.5 {
		confidence *= 0.5
	}

	return []DetectionResult{{
		Encoding:   "single-byte-xor",
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("%.0f%% unprintable bytes, entropy %.2f bits", ratio*100, entropy),
		Operation:  "crack_single_byte_xor",
	}}
}

// calculateEntropy calculates the Shannon entropy of data in bits per byte
func calculateEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	entropy := 0.0
	dataLen := float64(len(data))
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / dataLen
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// DecodeAll applies every suggested operation that succeeds on input
func DecodeAll(ctx context.Context, input []byte) ([]DecodeResult, error) {
	detections, err := NewSmartDetector().Detect(ctx, input)
	if err != nil {
		return nil, err
	}

	var results []DecodeResult
	for _, detection := range detections {
		op, exists := GetOperation(detection.Operation)
		if !exists {
			continue
		}

		decoded, err := op.Execute(ctx, input, map[string]interface{}{"strict": true})
		if err != nil {
			results = append(results, DecodeResult{Detection: detection, Error: err.Error()})
			continue
		}

		results = append(results, DecodeResult{
			Detection: detection,
			Decoded:   decoded,
			Success:   true,
		})
	}

	return results, nil
}

// DecodeResult is the outcome of one decode attempt
type DecodeResult struct {
	Detection DetectionResult `json:"detection"`
	Decoded   []byte          `json:"decoded"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
}
