//go:build unix

package gc

import "golang.org/x/sys/unix"

func systemPageSize() uint64 {
	return uint64(unix.Getpagesize())
}
