//go:build unix

package enumerate

import (
	"os"
	"syscall"
)

// sysDevIno extracts the (device, inode) pair from a stat result.
func sysDevIno(info os.FileInfo) (devIno, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return devIno{}, false
	}
	return devIno{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true
}
