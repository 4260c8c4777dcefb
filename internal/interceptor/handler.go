package interceptor

import (
	"context"
	"net"
)

// ConnHandler serves one accepted connection. It must not close conn.
type ConnHandler func(ctx context.Context, conn net.Conn) error

// ConnInterceptor wraps a ConnHandler.
type ConnInterceptor func(ctx context.Context, conn net.Conn, handler ConnHandler) error

// Chain wraps handler with interceptors. The first interceptor is the
// outermost one, as with grpc.ChainUnaryInterceptor.
func Chain(handler ConnHandler, interceptors ...ConnInterceptor) ConnHandler {
	for i := len(interceptors) - 1; i >= 0; i-- {
		next, icpt := handler, interceptors[i]
		handler = func(ctx context.Context, conn net.Conn) error {
			return icpt(ctx, conn, next)
		}
	}

	return handler
}
