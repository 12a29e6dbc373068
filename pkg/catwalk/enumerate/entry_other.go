//go:build !unix

package enumerate

import "os"

// sysDevIno is unavailable off Unix; cycle detection falls back to
// trusting the walk order.
func sysDevIno(info os.FileInfo) (devIno, bool) {
	return devIno{}, false
}
