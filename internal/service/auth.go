package service

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/xorcrack/internal/logging"
)

const (
	bearerPrefix    = "bearer "
	requestIDHeader = "x-request-id"
)

// TokenInterceptor rejects calls whose "authorization" metadata does not
// carry "Bearer <token>". Every call is written to the audit log under a
// fresh request id, which is also returned to the client in the
// "x-request-id" header.
func TokenInterceptor(token string, logger *slog.Logger, audit *logging.AuditLogger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	want := []byte(token)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := ulid.Make().String()
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, requestID))
		meta := map[string]any{"method": info.FullMethod, "request_id": requestID}
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			meta["peer"] = p.Addr.String()
		}

		if reason := checkBearer(ctx, want); reason != "" {
			logger.WarnContext(ctx, "rpc denied", "method", info.FullMethod, "request_id", requestID, "reason", reason)
			_ = audit.Emit(logging.AuditEvent{
				EventType: logging.EventRPCDenied,
				Decision:  logging.DecisionDeny,
				Reason:    reason,
				Metadata:  meta,
			})
			return nil, status.Error(codes.Unauthenticated, reason)
		}

		resp, err := handler(ctx, req)
		meta["code"] = status.Code(err).String()
		_ = audit.Emit(logging.AuditEvent{
			EventType: logging.EventRPCCall,
			Decision:  logging.DecisionAllow,
			Metadata:  meta,
		})
		return resp, err
	}
}

// checkBearer returns an empty string when ctx carries the expected token and
// the reason for rejection otherwise.
func checkBearer(ctx context.Context, want []byte) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "missing metadata"
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "missing authorization"
	}
	header := values[0]
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "authorization is not a bearer token"
	}
	got := []byte(strings.TrimSpace(header[len(bearerPrefix):]))
	if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
		return "invalid auth token"
	}
	return ""
}
