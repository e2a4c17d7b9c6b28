package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"unicode/utf8"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/logging"
	"github.com/RowanDark/xorcrack/internal/observability/metrics"
)

// maxRankedCandidates bounds the "top" field of Crack requests.
const maxRankedCandidates = 256

// Options configures a Server.
type Options struct {
	// Strict rejects malformed hex and mismatched XOR lengths instead of
	// degrading them.
	Strict bool
	// Alphabet is the default key alphabet for Crack ("default" or "full").
	Alphabet string
	// Registry resolves operations for Execute. Nil means the default.
	Registry *cipher.Registry
	Logger   *slog.Logger
	Audit    *logging.AuditLogger
}

// Server implements ToolkitServer on top of the cipher and crack packages.
type Server struct {
	strict   bool
	alphabet string
	registry *cipher.Registry
	logger   *slog.Logger
	audit    *logging.AuditLogger
}

// NewServer creates a Toolkit server.
func NewServer(opts Options) (*Server, error) {
	if _, err := crack.AlphabetByName(opts.Alphabet); err != nil {
		return nil, err
	}
	s := &Server{
		strict:   opts.Strict,
		alphabet: opts.Alphabet,
		registry: opts.Registry,
		logger:   opts.Logger,
		audit:    opts.Audit,
	}
	if s.registry == nil {
		s.registry = cipher.DefaultRegistry
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return s, nil
}

// HexToBase64 converts {hex} to {base64}.
func (s *Server) HexToBase64(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw, err := s.hexField(req, "hex")
	if err != nil {
		return nil, err
	}
	return newStruct(map[string]any{"base64": string(cipher.EncodeBase64(raw))})
}

// Xor combines {a} and {b} and returns {hex}.
func (s *Server) Xor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a, err := s.hexField(req, "a")
	if err != nil {
		return nil, err
	}
	b, err := s.hexField(req, "b")
	if err != nil {
		return nil, err
	}

	var out []byte
	if s.strict {
		if out, err = cipher.XORStrict(a, b); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "xor: %v", err)
		}
	} else {
		out = cipher.XOR(a, b)
	}
	return newStruct(map[string]any{"hex": string(cipher.EncodeHex(out))})
}

// Score rates {text}, or the bytes of {hex}, against English.
func (s *Server) Score(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var candidate []byte
	if text, ok := stringField(req, "text"); ok {
		candidate = []byte(text)
	} else {
		if _, ok := stringField(req, "hex"); !ok {
			return nil, status.Error(codes.InvalidArgument, "one of text or hex is required")
		}
		raw, err := s.hexField(req, "hex")
		if err != nil {
			return nil, err
		}
		candidate = raw
	}

	score := crack.Score(candidate)
	return newStruct(map[string]any{
		"score":   score,
		"letters": score != crack.MaxScore,
	})
}

// Crack recovers the single-byte XOR key of {hex}. With {top} > 0 the best
// candidates are listed as well.
func (s *Server) Crack(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ciphertext, err := s.hexField(req, "hex")
	if err != nil {
		return nil, err
	}
	name := s.alphabet
	if v, ok := stringField(req, "alphabet"); ok && v != "" {
		name = v
	}
	alphabet, err := crack.AlphabetByName(name)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	searcher, err := crack.NewSearcher(crack.DefaultScorer, alphabet)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	best := searcher.Crack(ciphertext)
	resp := candidateFields(best)

	rawTop := numberField(req, "top")
	if rawTop < 0 || rawTop > maxRankedCandidates || rawTop != math.Trunc(rawTop) {
		return nil, status.Errorf(codes.InvalidArgument, "top must be a whole number between 0 and %d", maxRankedCandidates)
	}
	if top := int(rawTop); top > 0 {
		var list []any
		for _, c := range searcher.Rank(ciphertext, top) {
			list = append(list, candidateFields(c))
		}
		resp["candidates"] = list
	}

	metrics.RecordKeyRecovered(name)
	s.logger.InfoContext(ctx, "key recovered", "key", best.Key, "score", best.Score, "bytes", len(ciphertext))
	_ = s.audit.Emit(logging.AuditEvent{
		EventType: logging.EventKeyRecovered,
		Metadata: map[string]any{
			"key":       int(best.Key),
			"score":     best.Score,
			"alphabet":  name,
			"plaintext": string(best.Plaintext),
		},
	})
	return newStruct(resp)
}

// Execute runs {operations} over the bytes of {input_hex}.
func (s *Server) Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := s.hexField(req, "input_hex")
	if err != nil {
		return nil, err
	}
	ops, err := operationsField(req)
	if err != nil {
		return nil, err
	}

	pipeline := &cipher.Pipeline{Operations: ops, Registry: s.registry}
	out, err := pipeline.Execute(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, status.FromContextError(err).Err()
		case errors.Is(err, cipher.ErrUnknownOperation):
			return nil, status.Error(codes.NotFound, err.Error())
		default:
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	names := make([]any, len(ops))
	for i, op := range ops {
		names[i] = op.Name
		metrics.RecordOperation(op.Name)
	}
	_ = s.audit.Emit(logging.AuditEvent{
		EventType: logging.EventOperationExecuted,
		Metadata:  map[string]any{"operations": names, "input_bytes": len(input), "output_bytes": len(out)},
	})
	return newStruct(map[string]any{"output_hex": string(cipher.EncodeHex(out))})
}

// hexField decodes a required hex string field. In strict mode malformed hex
// is rejected.
func (s *Server) hexField(req *structpb.Struct, name string) ([]byte, error) {
	v, ok := stringField(req, name)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	if !s.strict {
		return cipher.DecodeHex([]byte(v)), nil
	}
	raw, err := cipher.DecodeHexStrict([]byte(v))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %v", name, err)
	}
	return raw, nil
}

func stringField(req *structpb.Struct, name string) (string, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", false
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return sv.StringValue, true
}

func numberField(req *structpb.Struct, name string) float64 {
	return req.GetFields()[name].GetNumberValue()
}

func operationsField(req *structpb.Struct) ([]cipher.OperationConfig, error) {
	list := req.GetFields()["operations"].GetListValue()
	if list == nil || len(list.GetValues()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "operations is required")
	}

	ops := make([]cipher.OperationConfig, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			ops = append(ops, cipher.OperationConfig{Name: kind.StringValue})
		case *structpb.Value_StructValue:
			fields := kind.StructValue
			name, _ := stringField(fields, "name")
			if name == "" {
				return nil, status.Errorf(codes.InvalidArgument, "operation %d has no name", i)
			}
			ops = append(ops, cipher.OperationConfig{
				Name:       name,
				Parameters: fields.GetFields()["parameters"].GetStructValue().AsMap(),
			})
		default:
			return nil, status.Errorf(codes.InvalidArgument, "operation %d must be a name or an object", i)
		}
	}
	return ops, nil
}

func candidateFields(c crack.Candidate) map[string]any {
	fields := map[string]any{
		"key":           int(c.Key),
		"plaintext_hex": string(cipher.EncodeHex(c.Plaintext)),
		"score":         c.Score,
	}
	// Protobuf strings must be valid UTF-8.
	if utf8.Valid(c.Plaintext) {
		fields["plaintext"] = string(c.Plaintext)
	}
	return fields
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return st, nil
}
