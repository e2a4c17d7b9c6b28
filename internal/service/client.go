package service

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/xorcrack/internal/cipher"
)

// bearerCredentials attaches the auth token to every call.
type bearerCredentials string

func (b bearerCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(b)}, nil
}

func (bearerCredentials) RequireTransportSecurity() bool { return false }

// Client calls a Toolkit server.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target. Extra options are appended after the defaults, so
// tests can supply a context dialer.
func Dial(target, token string, opts ...grpc.DialOption) (*Client, error) {
	if token == "" {
		return nil, errors.New("auth token is required")
	}
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(bearerCredentials(token)),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// HexToBase64 converts hex-encoded data to base64 on the server.
func (c *Client) HexToBase64(ctx context.Context, hex string) (string, error) {
	out, err := c.invoke(ctx, MethodHexToBase64, map[string]any{"hex": hex})
	if err != nil {
		return "", err
	}
	return out.GetFields()["base64"].GetStringValue(), nil
}

// Xor combines two hex strings and returns the hex result.
func (c *Client) Xor(ctx context.Context, a, b string) (string, error) {
	out, err := c.invoke(ctx, MethodXor, map[string]any{"a": a, "b": b})
	if err != nil {
		return "", err
	}
	return out.GetFields()["hex"].GetStringValue(), nil
}

// Score rates text against English letter frequencies.
func (c *Client) Score(ctx context.Context, text string) (float64, error) {
	out, err := c.invoke(ctx, MethodScore, map[string]any{"text": text})
	if err != nil {
		return 0, err
	}
	return out.GetFields()["score"].GetNumberValue(), nil
}

// CrackResult is the decoded reply of a Crack call.
type CrackResult struct {
	Key        byte
	Plaintext  []byte
	Score      float64
	Candidates []CrackResult
}

// Crack recovers the single-byte XOR key of the hex ciphertext. An empty
// alphabet uses the server default; top > 0 asks for ranked candidates.
func (c *Client) Crack(ctx context.Context, hex, alphabet string, top int) (CrackResult, error) {
	fields := map[string]any{"hex": hex}
	if alphabet != "" {
		fields["alphabet"] = alphabet
	}
	if top > 0 {
		fields["top"] = top
	}
	out, err := c.invoke(ctx, MethodCrack, fields)
	if err != nil {
		return CrackResult{}, err
	}

	res := crackResult(out)
	for _, v := range out.GetFields()["candidates"].GetListValue().GetValues() {
		res.Candidates = append(res.Candidates, crackResult(v.GetStructValue()))
	}
	return res, nil
}

func crackResult(st *structpb.Struct) CrackResult {
	f := st.GetFields()
	return CrackResult{
		Key:       byte(f["key"].GetNumberValue()),
		Plaintext: cipher.DecodeHex([]byte(f["plaintext_hex"].GetStringValue())),
		Score:     f["score"].GetNumberValue(),
	}
}

// Execute runs a pipeline remotely over input.
func (c *Client) Execute(ctx context.Context, input []byte, ops []cipher.OperationConfig) ([]byte, error) {
	list := make([]any, len(ops))
	for i, op := range ops {
		step := map[string]any{"name": op.Name}
		if len(op.Parameters) > 0 {
			step["parameters"] = op.Parameters
		}
		list[i] = step
	}
	out, err := c.invoke(ctx, MethodExecute, map[string]any{
		"input_hex":  string(cipher.EncodeHex(input)),
		"operations": list,
	})
	if err != nil {
		return nil, err
	}
	return cipher.DecodeHex([]byte(out.GetFields()["output_hex"].GetStringValue())), nil
}
