package server

import (
	"context"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
)

// auditInterceptor tags the request logger with the method and the calling
// actor, and logs the outcome of every call.
func auditInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()

	ctx = logger.WithKV(ctx, "method", path.Base(info.FullMethod))

	if actor, ok := common.ActorFromContext(ctx); ok {
		ctx = logger.WithKV(ctx, "actor", actor.String())
	}

	resp, err := handler(ctx, req)
	if err != nil {
		logger.WarnKV(ctx, "RPC failed", "code", status.Code(err).String(), "duration", time.Since(start))

		return resp, err
	}

	logger.DebugKV(ctx, "RPC handled", "duration", time.Since(start))

	return resp, nil
}
