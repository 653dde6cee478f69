//go:build unix

package echo

import (
	"golang.org/x/sys/unix"
)

// OpenFileLimit returns the soft RLIMIT_NOFILE of the process. Every live
// connection holds one descriptor, so this is the effective connection cap
// when no admission limit is configured.
func OpenFileLimit() (uint64, error) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return 0, err
	}
	return uint64(rlimit.Cur), nil
}
