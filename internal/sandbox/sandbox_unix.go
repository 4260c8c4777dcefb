//go:build linux || freebsd || openbsd || dragonfly

package sandbox

import (
	"fmt"
	"slices"
	"syscall"

	"golang.org/x/sys/unix"
)

func confine(dir string) error {
	err := unix.Chroot(dir)
	if err != nil {
		return err
	}

	return unix.Chdir("/")
}

// dropPrivileges switches every thread of the process to account. On Linux
// unix.Setgroups only changes the calling thread, syscall.Setgroups and the
// unix.Setres*id wrappers change all of them.
func dropPrivileges(account Account) error {
	err := syscall.Setgroups([]int{account.GID})
	if err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}

	err = unix.Setresgid(account.GID, account.GID, account.GID)
	if err != nil {
		return fmt.Errorf("setresgid: %w", err)
	}

	err = unix.Setresuid(account.UID, account.UID, account.UID)
	if err != nil {
		return fmt.Errorf("setresuid: %w", err)
	}

	if unix.Getuid() != account.UID || unix.Geteuid() != account.UID || unix.Getegid() != account.GID {
		return fmt.Errorf("identity is uid=%d euid=%d egid=%d after the switch", unix.Getuid(), unix.Geteuid(), unix.Getegid())
	}

	groups, err := unix.Getgroups()
	if err != nil {
		return fmt.Errorf("getgroups: %w", err)
	}

	if !slices.Equal(groups, []int{account.GID}) {
		return fmt.Errorf("supplementary groups are %v after the switch", groups)
	}

	return nil
}
