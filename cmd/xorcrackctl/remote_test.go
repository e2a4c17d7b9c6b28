package main

import (
	"net"
	"strings"
	"testing"

	"google.golang.org/grpc"

	"github.com/RowanDark/xorcrack/internal/service"
)

func startToolkit(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	toolkit, err := service.NewServer(service.Options{Alphabet: "default"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv := grpc.NewServer(grpc.UnaryInterceptor(service.TokenInterceptor("cli-token", nil, nil)))
	service.RegisterToolkitServer(srv, toolkit)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func TestRemoteCommands(t *testing.T) {
	isolate(t)
	t.Setenv("XORCRACK_SERVER_ADDR", startToolkit(t))
	t.Setenv("XORCRACK_AUTH_TOKEN", "cli-token")

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"crack", []string{"remote", "crack", knownCiphertext}, []string{"key=0x58 'X'", knownPlaintext}},
		{"crack top", []string{"remote", "-top", "2", "crack", knownCiphertext}, []string{"  2  key=0x78 'x'"}},
		{"xor", []string{"remote", "xor", "1c0111001f010100061a024b53535009181c", "686974207468652062756c6c277320657965"}, []string{"746865206b696420646f6e277420706c6179"}},
		{"hex2b64", []string{"remote", "hex2b64", "4d616e"}, []string{"TWFu"}},
		{"score", []string{"remote", "score", "1234"}, []string{"max (no letters)"}},
		{"run", []string{"remote", "-op", "hex_decode", "run", "4142"}, []string{"AB"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, "", tt.args...)
			if res.code != 0 {
				t.Fatalf("exit code %d, stderr %q", res.code, res.stderr)
			}
			for _, want := range tt.want {
				if !strings.Contains(res.stdout, want) {
					t.Errorf("expected %q in output %q", want, res.stdout)
				}
			}
		})
	}
}

func TestRemoteErrors(t *testing.T) {
	isolate(t)
	addr := startToolkit(t)
	t.Setenv("XORCRACK_SERVER_ADDR", addr)

	if res := runCLI(t, "", "remote", "crack", knownCiphertext); res.code != 2 {
		t.Fatalf("expected exit 2 without a token, got %d", res.code)
	}

	res := runCLI(t, "", "remote", "-token", "wrong", "hex2b64", "00")
	if res.code != 1 || !strings.Contains(res.stderr, "Unauthenticated") {
		t.Fatalf("expected Unauthenticated failure, got %d %q", res.code, res.stderr)
	}

	if res := runCLI(t, "", "remote", "-token", "cli-token", "xor", "00"); res.code != 2 {
		t.Fatalf("expected usage error for missing operand, got %d", res.code)
	}
	if res := runCLI(t, "", "remote", "-token", "cli-token", "frob", "00"); res.code != 2 {
		t.Fatalf("expected usage error for unknown command, got %d", res.code)
	}
	if res := runCLI(t, "", "remote", "-token", "cli-token", "-op", "nope", "run", "00"); res.code != 1 || !strings.Contains(res.stderr, "NotFound") {
		t.Fatalf("expected NotFound for unknown operation, got %d %q", res.code, res.stderr)
	}
}
