//go:build !windows

package enumerate

// extendedPath is the identity off Windows; Unix filesystems have no
// extended-length path form. The policy still counts and skips paths the
// filesystem rejects with ENAMETOOLONG.
func extendedPath(path string) string {
	return path
}
