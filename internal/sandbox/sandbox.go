// Package sandbox reduces the privileges of the daemon before it serves
// any client: filesystem confinement, an unprivileged account and an OS
// restriction policy. Any failure is fatal, the daemon never runs
// partially sandboxed.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"strconv"
	"time"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/daytime/internal/config"
)

const ErrDomainSandbox = "sandbox"

var (
	ErrAccountLookup = errors.New("could not look up the unprivileged account")
	ErrConfine       = errors.New("could not confine the filesystem view")
	ErrPrivDrop      = errors.New("could not drop privileges")
	ErrRestrict      = errors.New("could not apply the restriction policy")
	ErrUnsupported   = errors.New("privilege reduction is not supported on this platform")
)

// Account is the unprivileged identity the daemon runs as.
type Account struct {
	Name string
	UID  int
	GID  int
}

// Reduce applies the sandbox described by cfg. It is a no-op in debug mode.
func Reduce(ctx context.Context, cfg *config.Config) error {
	if cfg.DebugMode {
		slogctx.Debug(ctx, "debug mode, not sandboxing")
		return nil
	}

	d := cfg.Daytime
	errb := oops.In(ErrDomainSandbox).
		WithContext(ctx).
		With("user", d.User, "chrootDir", d.ChrootDir)

	account, err := LookupAccount(d.User)
	if err != nil {
		return errb.Wrapf(err, "looking up %s", d.User)
	}

	// the zone database is out of reach after chroot
	_, _ = time.Now().Zone()

	err = confine(d.ChrootDir)
	if err != nil {
		return errb.Wrapf(fmt.Errorf("%w: %w", ErrConfine, err), "chroot to %s", d.ChrootDir)
	}

	err = dropPrivileges(account)
	if err != nil {
		return errb.Wrapf(fmt.Errorf("%w: %w", ErrPrivDrop, err), "switching to %s", account.Name)
	}

	err = restrict(d.Promises)
	if err != nil {
		return errb.Wrapf(fmt.Errorf("%w: %w", ErrRestrict, err), "restricting to %q", d.Promises)
	}

	slogctx.Info(ctx, "sandbox applied", "user", account.Name, "uid", account.UID, "gid", account.GID)

	return nil
}

// LookupAccount resolves name in the user database.
func LookupAccount(name string) (Account, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %w", ErrAccountLookup, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Account{}, fmt.Errorf("%w: uid %q: %w", ErrAccountLookup, u.Uid, err)
	}

	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Account{}, fmt.Errorf("%w: gid %q: %w", ErrAccountLookup, u.Gid, err)
	}

	return Account{Name: u.Username, UID: uid, GID: gid}, nil
}
