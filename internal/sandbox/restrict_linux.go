package sandbox

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// restrict has no pledge to map the promises to; it forbids regaining
// privileges through exec of setuid binaries or file capabilities.
//
// PR_SET_NO_NEW_PRIVS is a per-thread attribute, so it is set on every OS
// thread of the process. Binaries linked with cgo cannot do that and only
// the calling thread and the threads it spawns later carry it.
func restrict(string) error {
	_, _, errno := syscall.AllThreadsSyscall(syscall.SYS_PRCTL, unix.PR_SET_NO_NEW_PRIVS, 1, 0)
	switch errno {
	case 0:
		return nil
	case syscall.ENOTSUP:
		return unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0)
	default:
		return errno
	}
}
