//go:build !(linux || freebsd || openbsd || dragonfly)

package sandbox

func confine(string) error {
	return ErrUnsupported
}

func dropPrivileges(Account) error {
	return ErrUnsupported
}
