package enumerate

import "strings"

// extendedPath returns the \\?\ extended-length form of an absolute path,
// which bypasses the 260-character limit on Windows. UNC paths get the
// \\?\UNC\ form. Already-extended paths pass through.
func extendedPath(path string) string {
	if strings.HasPrefix(path, `\\?\`) {
		return path
	}
	if strings.HasPrefix(path, `\\`) {
		return `\\?\UNC\` + path[2:]
	}
	return `\\?\` + path
}
