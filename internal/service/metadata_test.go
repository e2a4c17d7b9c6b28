package service

import (
	"context"

	"google.golang.org/grpc/metadata"
)

func metadataContext(kv ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(kv...))
}
