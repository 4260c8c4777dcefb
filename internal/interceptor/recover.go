package interceptor

import (
	"context"
	"fmt"
	"net"
	"runtime"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/daytime/internal/service"
)

const stackBufSize = 9 << 11

// Recover helps in recovering panics in connection handlers so that one
// connection cannot take the listener down.
type Recover struct{}

// NewRecover will create a Recover instance.
func NewRecover() *Recover {
	return &Recover{}
}

// ConnInterceptor intercepts any panic and returns service.ErrPanic instead.
// Note: It is better to add this as the last interceptor.
func (r *Recover) ConnInterceptor(ctx context.Context, conn net.Conn, handler ConnHandler) (err error) {
	defer func() {
		rec := recover()
		if rec != nil {
			err = fmt.Errorf("%w: %v", service.ErrPanic, rec)
			r.logError(ctx, conn)
		}
	}()

	return handler(ctx, conn)
}

// logError prints stacktrace.
func (r *Recover) logError(ctx context.Context, conn net.Conn) {
	stackBuf := make([]byte, stackBufSize)
	stackSize := runtime.Stack(stackBuf, false)
	slogctx.Error(ctx, fmt.Sprintf(
		"------------------------------- \n remote:[%s] \n Trace:\n %s \n--------------------------------",
		remoteAddr(conn),
		string(stackBuf[:stackSize])),
	)
}

func remoteAddr(conn net.Conn) string {
	if conn == nil || conn.RemoteAddr() == nil {
		return ""
	}

	return conn.RemoteAddr().String()
}
