package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RowanDark/xorcrack/internal/env"
)

const (
	knownCiphertext = "1b37373331363f78151b7f2b783431333d78397828372d363c78373e783a393b3736"
	knownPlaintext  = "Cooking MC's like a pound of bacon"
)

// isolate points every configuration source at a temporary directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, key := range []string{
		"XORCRACK_SERVER_ADDR", "XORCRACK_SERVER",
		"XORCRACK_AUTH_TOKEN", "XORCRACK_TOKEN",
		"XORCRACK_ALPHABET", "XORCRACK_STRICT",
		"XORCRACK_MAX_CONNS", "XORCRACK_AUDIT_LOG",
		"XORCRACK_TRACE_FILE", "XORCRACK_TRACE_SAMPLE_RATIO", "XORCRACK_METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("XORCRACK_RECIPES_DIR", filepath.Join(dir, "recipes"))
	t.Setenv("XORCRACK_UPDATER_DIR", filepath.Join(dir, "updater"))
	env.ResetWarningsForTesting()
	return dir
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	c := &cli{stdin: strings.NewReader(stdin), stdout: stdout, stderr: stderr}
	code := c.run(args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestHexToBase64Command(t *testing.T) {
	isolate(t)
	const (
		in   = "49276d206b696c6c696e6720796f757220627261696e206c696b65206120706f69736f6e6f7573206d757368726f6f6d"
		want = "SSdtIGtpbGxpbmcgeW91ciBicmFpbiBsaWtlIGEgcG9pc29ub3VzIG11c2hyb29t\n"
	)

	if res := runCLI(t, "", "hex2b64", in); res.code != 0 || res.stdout != want {
		t.Fatalf("argument: code %d, got %q (stderr %q)", res.code, res.stdout, res.stderr)
	}
	if res := runCLI(t, in+"\n", "hex2b64"); res.code != 0 || res.stdout != want {
		t.Fatalf("stdin: code %d, got %q (stderr %q)", res.code, res.stdout, res.stderr)
	}

	if res := runCLI(t, "", "hex2b64", "4z"); res.code != 0 || res.stdout != "QA==\n" {
		t.Fatalf("lenient decoding should map z to 0, got %q", res.stdout)
	}
	if res := runCLI(t, "", "hex2b64", "-strict", "4z"); res.code != 1 {
		t.Fatalf("expected exit code 1 in strict mode, got %d", res.code)
	}

	t.Setenv("XORCRACK_STRICT", "true")
	if res := runCLI(t, "", "hex2b64", "4z"); res.code != 1 {
		t.Fatalf("expected configured strict mode to reject input, got %d", res.code)
	}
}

func TestXorCommand(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		code int
		out  string
	}{
		{"equal length", []string{"1c0111001f010100061a024b53535009181c", "686974207468652062756c6c277320657965"}, 0, "746865206b696420646f6e277420706c6179\n"},
		{"truncates", []string{"ffff", "0f"}, 0, "f0\n"},
		{"strict mismatch", []string{"-strict", "ffff", "0f"}, 1, ""},
		{"one operand", []string{"ffff"}, 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, "", append([]string{"xor"}, tt.args...)...)
			if res.code != tt.code {
				t.Fatalf("expected exit code %d, got %d (stderr %q)", tt.code, res.code, res.stderr)
			}
			if res.stdout != tt.out {
				t.Fatalf("expected %q, got %q", tt.out, res.stdout)
			}
		})
	}
}

func TestScoreCommand(t *testing.T) {
	isolate(t)

	if res := runCLI(t, "", "score", "123 !"); res.code != 0 || res.stdout != "max (no letters)\n" {
		t.Fatalf("unexpected output %q", res.stdout)
	}
	if res := runCLI(t, "", "score", "abc"); res.code != 0 || strings.HasPrefix(res.stdout, "max") {
		t.Fatalf("expected a numeric score, got %q", res.stdout)
	}
	if res := runCLI(t, "", "score", "-hex", "616263"); res.code != 0 || res.stdout != runCLI(t, "", "score", "abc").stdout {
		t.Fatalf("hex input should score like its text, got %q", res.stdout)
	}
}

func TestCrackCommand(t *testing.T) {
	dir := isolate(t)
	auditPath := filepath.Join(dir, "audit.jsonl")
	t.Setenv("XORCRACK_AUDIT_LOG", auditPath)

	res := runCLI(t, "", "crack", "-top", "2", knownCiphertext)
	if res.code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", res.code, res.stderr)
	}
	if !strings.HasPrefix(res.stdout, "key=0x58 'X'") {
		t.Fatalf("expected key X first, got %q", res.stdout)
	}
	if !strings.Contains(res.stdout, `"`+knownPlaintext+`"`) {
		t.Fatalf("expected plaintext in output, got %q", res.stdout)
	}
	if !strings.Contains(res.stdout, "  2  key=0x78 'x'") {
		t.Fatalf("expected ranked candidates, got %q", res.stdout)
	}

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(data), `"event_type":"key_recovered"`) {
		t.Fatalf("expected key_recovered event, got %s", data)
	}

	if res := runCLI(t, "", "crack", "-alphabet", "greek", knownCiphertext); res.code != 2 {
		t.Fatalf("expected usage error for unknown alphabet, got %d", res.code)
	}
}

func TestDetectCommand(t *testing.T) {
	isolate(t)
	decoy := strings.Repeat("ff", len(knownCiphertext)/2)
	input := strings.Join([]string{decoy, "", decoy, knownCiphertext, decoy}, "\n")

	path := filepath.Join(t.TempDir(), "lines.txt")
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	for name, args := range map[string][]string{"file": {"detect", path}, "stdin": {"detect"}} {
		t.Run(name, func(t *testing.T) {
			res := runCLI(t, input, args...)
			if res.code != 0 {
				t.Fatalf("expected exit code 0, got %d (stderr %q)", res.code, res.stderr)
			}
			if !strings.HasPrefix(res.stdout, "line 4: key=0x58") {
				t.Fatalf("expected line 4, got %q", res.stdout)
			}
		})
	}

	if res := runCLI(t, "\n\n", "detect"); res.code != 1 {
		t.Fatalf("expected failure without ciphertexts, got %d", res.code)
	}

	bad := strings.Join([]string{decoy, "zz" + knownCiphertext[2:]}, "\n")
	if res := runCLI(t, bad, "detect"); res.code != 0 {
		t.Fatalf("lenient detect should decode invalid digits, got %d (stderr %q)", res.code, res.stderr)
	}
	res := runCLI(t, bad, "detect", "-strict")
	if res.code != 1 || !strings.Contains(res.stderr, "line 2: decode hex") {
		t.Fatalf("expected strict detect to reject line 2, got %d %q", res.code, res.stderr)
	}
	t.Setenv("XORCRACK_STRICT", "true")
	if res := runCLI(t, bad, "detect"); res.code != 1 {
		t.Fatalf("expected configured strict mode to apply to detect, got %d", res.code)
	}
}

func TestOpsCommand(t *testing.T) {
	isolate(t)

	res := runCLI(t, "", "ops")
	if res.code != 0 {
		t.Fatalf("expected exit code 0, got %d", res.code)
	}
	for _, name := range []string{"hex_decode", "base64_encode", "single_byte_xor", "crack_single_byte_xor"} {
		if !strings.Contains(res.stdout, name) {
			t.Errorf("expected %s in listing: %s", name, res.stdout)
		}
	}

	res = runCLI(t, "", "ops", "-type", "analyze")
	if strings.Contains(res.stdout, "hex_decode") || !strings.Contains(res.stdout, "crack_single_byte_xor") {
		t.Fatalf("unexpected filtered listing: %s", res.stdout)
	}
}

func TestRunCommand(t *testing.T) {
	isolate(t)

	tests := []struct {
		name  string
		args  []string
		stdin string
		code  int
		out   string
	}{
		{"hex to base64", []string{"-op", "hex_decode,base64_encode", "49276d"}, "", 0, "SSdt\n"},
		{"xor with character key", []string{"-op", "hex_decode,single_byte_xor:key=X", knownCiphertext}, "", 0, knownPlaintext + "\n"},
		{"xor with numeric key", []string{"-op", "hex_decode,single_byte_xor:key=88"}, knownCiphertext, 0, knownPlaintext + "\n"},
		{"crack step", []string{"-op", "hex_decode,crack_single_byte_xor", knownCiphertext}, "", 0, knownPlaintext + "\n"},
		{"reverse", []string{"-op", "hex_decode,base64_encode", "-reverse", "SSdt"}, "", 0, "49276d\n"},
		{"hex output", []string{"-op", "base64_encode", "-hex", "a"}, "", 0, "59513d3d\n"},
		{"no pipeline", []string{"abc"}, "", 2, ""},
		{"both sources", []string{"-op", "hex_decode", "-recipe", "x", "abc"}, "", 2, ""},
		{"bad parameter", []string{"-op", "single_byte_xor:key", "abc"}, "", 2, ""},
		{"unknown operation", []string{"-op", "rot13", "abc"}, "", 1, ""},
		{"not reversible", []string{"-op", "crack_single_byte_xor", "-reverse", "abc"}, "", 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, tt.stdin, append([]string{"run"}, tt.args...)...)
			if res.code != tt.code {
				t.Fatalf("expected exit code %d, got %d (stderr %q)", tt.code, res.code, res.stderr)
			}
			if res.stdout != tt.out {
				t.Fatalf("expected %q, got %q", tt.out, res.stdout)
			}
		})
	}
}

func TestRecipeCommands(t *testing.T) {
	dir := isolate(t)

	res := runCLI(t, "", "recipe", "save", "-name", "hex b64", "-op", "hex_decode,base64_encode",
		"-description", "cryptopals set 1", "-tags", "cryptopals, basics", "-reversible")
	if res.code != 0 {
		t.Fatalf("save: expected exit code 0, got %d (stderr %q)", res.code, res.stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "recipes", "hex_b64.yaml")); err != nil {
		t.Fatalf("expected recipe file: %v", err)
	}

	res = runCLI(t, "", "recipe", "list", "-search", "CRYPTOPALS")
	if res.code != 0 || !strings.Contains(res.stdout, "hex b64") || !strings.Contains(res.stdout, "hex_decode,base64_encode") {
		t.Fatalf("list: unexpected output %q", res.stdout)
	}

	if res := runCLI(t, "", "run", "-recipe", "hex b64", "49276d"); res.code != 0 || res.stdout != "SSdt\n" {
		t.Fatalf("run recipe: code %d, got %q (stderr %q)", res.code, res.stdout, res.stderr)
	}
	if res := runCLI(t, "", "run", "-recipe", "hex b64", "-reverse", "SSdt"); res.code != 0 || res.stdout != "49276d\n" {
		t.Fatalf("reverse recipe: code %d, got %q (stderr %q)", res.code, res.stdout, res.stderr)
	}

	if res := runCLI(t, "", "recipe", "save", "-name", "bad", "-op", "rot13"); res.code != 2 {
		t.Fatalf("expected usage error for unknown operation, got %d", res.code)
	}

	if res := runCLI(t, "", "recipe", "delete", "hex b64"); res.code != 0 {
		t.Fatalf("delete: expected exit code 0, got %d (stderr %q)", res.code, res.stderr)
	}
	if res := runCLI(t, "", "recipe", "list"); res.stdout != "no recipes\n" {
		t.Fatalf("expected empty list after delete, got %q", res.stdout)
	}
	if res := runCLI(t, "", "recipe", "delete", "hex b64"); res.code != 1 {
		t.Fatalf("expected failure deleting a missing recipe, got %d", res.code)
	}
	if res := runCLI(t, "", "recipe"); res.code != 2 {
		t.Fatalf("expected usage error without subcommand, got %d", res.code)
	}
}

func TestIdentifyCommand(t *testing.T) {
	isolate(t)

	res := runCLI(t, "", "identify", "49276d20")
	if res.code != 0 || !strings.HasPrefix(res.stdout, "hex") {
		t.Fatalf("expected hex first, got %q", res.stdout)
	}

	res = runCLI(t, "", "identify", "-decode", "49276d20")
	if res.code != 0 || !strings.Contains(res.stdout, `"I'm "`) {
		t.Fatalf("expected decoded output, got %q", res.stdout)
	}

	if res := runCLI(t, "", "identify", "Hello, World!"); res.stdout != "no encoding detected\n" {
		t.Fatalf("expected no detections, got %q", res.stdout)
	}
}

func TestConfigPrintRedactsToken(t *testing.T) {
	isolate(t)
	t.Setenv("XORCRACK_AUTH_TOKEN", "super-secret")

	res := runCLI(t, "", "config", "print")
	if res.code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", res.code, res.stderr)
	}
	if strings.Contains(res.stdout, "super-secret") {
		t.Fatalf("config print leaked the token: %s", res.stdout)
	}
	if !strings.Contains(res.stdout, "server_addr: 127.0.0.1:50051") {
		t.Fatalf("expected default server address: %s", res.stdout)
	}

	t.Setenv("XORCRACK_MAX_CONNS", "lots")
	if res := runCLI(t, "", "config", "print"); res.code != 1 {
		t.Fatalf("expected failure for invalid config, got %d", res.code)
	}
}

func TestSelfUpdateChannel(t *testing.T) {
	isolate(t)

	if res := runCLI(t, "", "self-update", "channel"); res.code != 0 || res.stdout != "stable\n" {
		t.Fatalf("expected stable default, got %q", res.stdout)
	}
	if res := runCLI(t, "", "self-update", "channel", "beta"); res.code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", res.code, res.stderr)
	}
	if res := runCLI(t, "", "self-update", "channel"); res.stdout != "beta\n" {
		t.Fatalf("expected beta after switching, got %q", res.stdout)
	}
	if res := runCLI(t, "", "self-update", "channel", "nightly"); res.code != 2 {
		t.Fatalf("expected usage error for unknown channel, got %d", res.code)
	}
	if res := runCLI(t, "", "self-update", "-channel", "nightly"); res.code != 2 {
		t.Fatalf("expected usage error for unknown channel flag, got %d", res.code)
	}
	if res := runCLI(t, "", "self-update", "-rollback"); res.code != 1 {
		t.Fatalf("expected rollback without backup to fail, got %d", res.code)
	}
}

func TestUsageAndVersion(t *testing.T) {
	isolate(t)

	if res := runCLI(t, ""); res.code != 2 || !strings.Contains(res.stderr, cliBanner) {
		t.Fatalf("expected usage with exit code 2, got %d %q", res.code, res.stderr)
	}
	if res := runCLI(t, "", "frobnicate"); res.code != 2 {
		t.Fatalf("expected exit code 2 for unknown command, got %d", res.code)
	}
	if res := runCLI(t, "", "version"); res.code != 0 || res.stdout != "xorcrack dev\n" {
		t.Fatalf("unexpected version output %q", res.stdout)
	}
	if res := runCLI(t, "", "version", "extra"); res.code != 2 {
		t.Fatalf("expected usage error, got %d", res.code)
	}
}
