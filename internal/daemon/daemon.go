// Package daemon detaches the process from its controlling terminal.
package daemon

import (
	"errors"
	"fmt"

	"github.com/samber/oops"

	godaemon "github.com/sevlyar/go-daemon"

	"github.com/openkcm/daytime/internal/config"
)

const ErrDomainDaemon = "daemon"

const umask = 0o22

var ErrDetach = errors.New("could not detach from the controlling terminal")

// Role tells the caller which side of the detach it is running on.
type Role int

const (
	// Foreground means no detach happened, the process keeps running.
	Foreground Role = iota
	// Parent is the invoking process, it must exit once Detach returns.
	Parent
	// Child is the detached daemon process.
	Child
)

// IsChild reports whether this process is the detached daemon.
func IsChild() bool {
	return godaemon.WasReborn()
}

// Detach re-executes the binary in a new session with the standard streams
// on /dev/null. The working directory is kept so both sides read the same
// configuration; the sandbox moves it to the root of the chroot later.
// Debug mode stays attached.
func Detach(cfg *config.Config) (Role, error) {
	if cfg.DebugMode {
		return Foreground, nil
	}

	dctx := &godaemon.Context{
		Umask: umask,
	}

	child, err := dctx.Reborn()
	if err != nil {
		return Foreground, oops.In(ErrDomainDaemon).
			Wrapf(fmt.Errorf("%w: %w", ErrDetach, err), "daemonizing")
	}

	if child != nil {
		return Parent, nil
	}

	return Child, nil
}
