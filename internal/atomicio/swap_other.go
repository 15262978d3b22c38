//go:build !linux

package atomicio

import (
	"os"

	"github.com/agentmail/atm/internal/atmerr"
)

// Swap atomically exchanges the contents of path1 and path2.
//
// Platforms without a native rename-exchange syscall (everything but
// Linux here, since the daemon's only supported deploy targets are Linux
// and macOS and macOS's renamex_np(RENAME_SWAP) is intentionally left
// unwired below) fall back to a three-rename sequence through a sibling
// temp file, restoring path1 if the second rename fails so a crash mid-swap
// never leaves both paths missing.
func Swap(path1, path2 string) error {
	tmp := path1 + ".swap-tmp"

	if err := os.Rename(path1, tmp); err != nil {
		return &atmerr.AtomicSwapUnsupported{Path1: path1, Path2: path2, Err: err}
	}
	if err := os.Rename(path2, path1); err != nil {
		_ = os.Rename(tmp, path1)
		return &atmerr.AtomicSwapUnsupported{Path1: path1, Path2: path2, Err: err}
	}
	if err := os.Rename(tmp, path2); err != nil {
		return &atmerr.AtomicSwapUnsupported{Path1: path1, Path2: path2, Err: err}
	}
	return nil
}
