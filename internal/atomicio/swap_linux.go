//go:build linux

package atomicio

import (
	"golang.org/x/sys/unix"

	"github.com/agentmail/atm/internal/atmerr"
)

// Swap atomically exchanges the contents of path1 and path2. On Linux this
// uses renameat2(2) with RENAME_EXCHANGE (kernel 3.15+), which either
// fully succeeds or leaves both files untouched.
func Swap(path1, path2 string) error {
	err := unix.Renameat2(unix.AT_FDCWD, path1, unix.AT_FDCWD, path2, unix.RENAME_EXCHANGE)
	if err != nil {
		return &atmerr.AtomicSwapUnsupported{Path1: path1, Path2: path2, Err: err}
	}
	return nil
}
