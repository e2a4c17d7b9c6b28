// Package service exposes the xorcrack operations over gRPC.
//
// Messages are google.protobuf.Struct values so the service needs no
// generated code; the field names of each request and response are listed on
// the ToolkitServer methods. Binary values travel as lowercase hex strings.
package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "xorcrack.v1.Toolkit"

const (
	MethodHexToBase64 = "/" + ServiceName + "/HexToBase64"
	MethodXor         = "/" + ServiceName + "/Xor"
	MethodScore       = "/" + ServiceName + "/Score"
	MethodCrack       = "/" + ServiceName + "/Crack"
	MethodExecute     = "/" + ServiceName + "/Execute"
)

// ToolkitServer is the server API for the Toolkit service.
type ToolkitServer interface {
	// HexToBase64 takes {hex} and returns {base64}.
	HexToBase64(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Xor takes {a, b} as hex and returns {hex}.
	Xor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Score takes {text} or {hex} and returns {score, letters}.
	Score(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Crack takes {hex, alphabet?, top?} and returns {key, plaintext_hex,
	// plaintext?, score, candidates?}.
	Crack(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Execute takes {input_hex, operations: [{name, parameters}]} and returns
	// {output_hex}.
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterToolkitServer registers srv with s.
func RegisterToolkitServer(s grpc.ServiceRegistrar, srv ToolkitServer) {
	s.RegisterService(&ToolkitServiceDesc, srv)
}

func unaryHandler(fullMethod string, call func(ToolkitServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ToolkitServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ToolkitServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ToolkitServiceDesc describes the Toolkit service for grpc.Server.
var ToolkitServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ToolkitServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "HexToBase64", Handler: unaryHandler(MethodHexToBase64, ToolkitServer.HexToBase64)},
		{MethodName: "Xor", Handler: unaryHandler(MethodXor, ToolkitServer.Xor)},
		{MethodName: "Score", Handler: unaryHandler(MethodScore, ToolkitServer.Score)},
		{MethodName: "Crack", Handler: unaryHandler(MethodCrack, ToolkitServer.Crack)},
		{MethodName: "Execute", Handler: unaryHandler(MethodExecute, ToolkitServer.Execute)},
	},
	Streams: []grpc.StreamDesc{},
}
