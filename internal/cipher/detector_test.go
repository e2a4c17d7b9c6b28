package cipher

import (
	"context"
	"math"
	"testing"
)

func TestDetectEncodings(t *testing.T) {
	detector := NewSmartDetector()
	ctx := context.Background()

	tests := []struct {
		name          string
		input         string
		wantTop       string
		minConfidence float64
	}{
		{"padded base64", "SGVsbG8sIFdvcmxkIQ==", "base64", 0.85},
		{"unpadded base64", "TWFu", "base64", 0.7},
		{"hex text", "49276d20", "hex", 0.8},
		{"decimal digits still favour hex", "12345678", "hex", 0.5},
		{"hex with whitespace", "  4d616e\n", "hex", 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := detector.Detect(ctx, []byte(tt.input))
			if err != nil {
				t.Fatalf("detect failed: %v", err)
			}
			if len(results) == 0 {
				t.Fatalf("expected detections for %q", tt.input)
			}

			top := results[0]
			if top.Encoding != tt.wantTop {
				t.Errorf("expected top encoding %s, got %s", tt.wantTop, top.Encoding)
			}
			if top.Confidence < tt.minConfidence {
				t.Errorf("expected confidence >= %.2f, got %.2f", tt.minConfidence, top.Confidence)
			}

			for i := 1; i < len(results); i++ {
				if results[i].Confidence > results[i-1].Confidence {
					t.Errorf("results not sorted by confidence: %+v", results)
				}
			}
		})
	}
}

func TestDetectPlainText(t *testing.T) {
	results, err := NewSmartDetector().Detect(context.Background(), []byte("Hello, World!"))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no detections for plain text, got %+v", results)
	}
}

func TestDetectOddHex(t *testing.T) {
	results, _ := NewSmartDetector().Detect(context.Background(), []byte("abc"))
	for _, r := range results {
		if r.Encoding == "hex" {
			t.Errorf("odd-length input should not be detected as hex")
		}
	}
}

func TestDetectSingleByteXOR(t *testing.T) {
	ciphertext := XORByte([]byte("Cooking MC's like a pound of bacon"), 0x80)

	results, err := NewSmartDetector().Detect(context.Background(), ciphertext)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(results) == 0 || results[0].Encoding != "single-byte-xor" {
		t.Fatalf("expected single-byte-xor suggestion, got %+v", results)
	}
	if results[0].Operation != "crack_single_byte_xor" {
		t.Errorf("expected crack operation, got %s", results[0].Operation)
	}
	if results[0].Confidence < 0.7 {
		t.Errorf("expected high confidence, got %.2f", results[0].Confidence)
	}
}

func TestDetectEmptyInput(t *testing.T) {
	if _, err := NewSmartDetector().Detect(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestCalculateEntropy(t *testing.T) {
	if got := calculateEntropy([]byte("aaaa")); got != 0 {
		t.Errorf("expected zero entropy, got %f", got)
	}

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	if got := calculateEntropy(all); math.Abs(got-8) > 1e-9 {
		t.Errorf("expected 8 bits, got %f", got)
	}
}

func TestDecodeAll(t *testing.T) {
	results, err := DecodeAll(context.Background(), []byte("49276d20"))
	if err != nil {
		t.Fatalf("DecodeAll failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected decode results")
	}

	first := results[0]
	if !first.Success || first.Detection.Encoding != "hex" {
		t.Fatalf("expected successful hex decode first, got %+v", first)
	}
	if string(first.Decoded) != "I'm " {
		t.Errorf("expected %q, got %q", "I'm ", first.Decoded)
	}
}

func TestSupportedEncodings(t *testing.T) {
	got := NewSmartDetector().SupportedEncodings()
	if len(got) != 3 {
		t.Errorf("expected 3 encodings, got %v", got)
	}
}
