package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/daytime/internal/config"
	"github.com/openkcm/daytime/internal/daytime"
)

// Responder delivers the current time for one accepted connection.
type Responder struct {
	clock        daytime.Clock
	mode         daytime.Mode
	writeTimeout time.Duration
	meters       *Meters

	consoleMu sync.Mutex
	console   io.Writer
}

// NewResponder creates a Responder. console receives the time string in
// console mode and is ignored in network mode.
func NewResponder(cfg config.Daytime, clock daytime.Clock, console io.Writer, meters *Meters) *Responder {
	return &Responder{
		clock:        clock,
		mode:         cfg.Mode,
		writeTimeout: cfg.WriteTimeout,
		meters:       meters,
		console:      console,
	}
}

// Respond formats the current time and delivers it. It does not close conn.
// Every error is scoped to this connection.
func (r *Responder) Respond(ctx context.Context, conn net.Conn) error {
	n, err := r.respond(ctx, conn)
	if err != nil {
		r.meters.handleError(ctx, r.mode, err)

		return oops.In(ErrDomainService).
			WithContext(ctx).
			With("mode", r.mode).
			Wrapf(err, "responding to %s", conn.RemoteAddr())
	}

	r.meters.handleReply(ctx, r.mode, n)

	return nil
}

func (r *Responder) respond(ctx context.Context, conn net.Conn) (int, error) {
	now := r.clock.Now()

	if r.mode == daytime.ModeConsole {
		return r.print(now)
	}

	line, err := daytime.Line(now)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	err = conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	if err != nil {
		return 0, mapSendError(err)
	}

	n, err := io.WriteString(conn, line)
	if err != nil {
		return n, ErrorWithParams(mapSendError(err), "sent", n, "len", len(line))
	}

	slogctx.Debug(ctx, "sent time string", "chars", n)

	return n, nil
}

func (r *Responder) print(now time.Time) (int, error) {
	s, err := daytime.Format(now)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()

	n, err := fmt.Fprintln(r.console, s)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrConsole, err)
	}

	return n, nil
}
