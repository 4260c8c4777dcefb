// Package server runs the daytime accept loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/daytime/internal/interceptor"
)

const ErrDomainServer = "server"

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

var (
	ErrListen                = errors.New("could not bind the daytime listener")
	ErrInvalidMaxConnections = errors.New("max connections must be greater than zero")
)

// Listen binds the TCP listener on address.
func Listen(ctx context.Context, address string) (net.Listener, error) {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, oops.In(ErrDomainServer).
			WithContext(ctx).
			With("address", address).
			Wrapf(fmt.Errorf("%w: %w", ErrListen, err), "listening on %s", address)
	}

	return ln, nil
}

// Server accepts connections and hands each one to its own goroutine,
// running at most maxConnections handlers at a time.
type Server struct {
	handler  interceptor.ConnHandler
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	inFlight atomic.Int64
	served   atomic.Int64
}

// New creates a Server.
func New(handler interceptor.ConnHandler, maxConnections int64) (*Server, error) {
	if maxConnections <= 0 {
		return nil, oops.In(ErrDomainServer).
			Wrapf(fmt.Errorf("%w: %d", ErrInvalidMaxConnections, maxConnections), "creating server")
	}

	return &Server{
		handler: handler,
		sem:     semaphore.NewWeighted(maxConnections),
	}, nil
}

// InFlight returns the number of connections currently being served.
func (s *Server) InFlight() int64 {
	return s.inFlight.Load()
}

// Served returns the number of connections handled since start.
func (s *Server) Served() int64 {
	return s.served.Load()
}

// Serve accepts connections on ln until ctx is done or ln is closed, then
// waits for the in-flight handlers. ln is closed when Serve returns.
// Accept errors other than a closed listener are logged and retried.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer func() {
		stop()
		_ = ln.Close()
		s.wg.Wait()
	}()

	slogctx.Debug(ctx, "server up and listening for connections", "address", ln.Addr().String())

	var delay time.Duration

	for {
		err := s.sem.Acquire(ctx, 1)
		if err != nil {
			return nil
		}

		conn, err := ln.Accept()
		if err != nil {
			s.sem.Release(1)

			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				slogctx.Debug(ctx, "listener closed")
				return nil
			}

			delay = nextDelay(delay)
			slogctx.Warn(ctx, "accept failed, retrying", "error", err, "delay", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}

			continue
		}

		delay = 0

		s.wg.Add(1)
		s.inFlight.Add(1)

		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer func() {
		_ = conn.Close()

		s.served.Add(1)
		s.inFlight.Add(-1)
		s.sem.Release(1)
		s.wg.Done()
	}()

	ctx = slogctx.With(ctx,
		"connectionID", uuid.NewString(),
		"remote", conn.RemoteAddr().String(),
	)
	slogctx.Debug(ctx, "connection accepted")

	err := s.handler(ctx, conn)
	if err != nil {
		slogctx.Error(ctx, "serving connection failed", "error", err)
	}
}

func nextDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}

	return min(delay*2, maxAcceptDelay)
}
