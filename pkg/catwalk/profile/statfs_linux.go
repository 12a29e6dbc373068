package profile

import "golang.org/x/sys/unix"

// Filesystem magic numbers for remote filesystems, from statfs(2).
const (
	nfsSuperMagic  = 0x6969
	smbSuperMagic  = 0x517b
	cifsSuperMagic = 0xff534d42
	smb2SuperMagic = 0xfe534d42
	fuseSuperMagic = 0x65735546
)

// detectFilesystem inspects the filesystem type backing root. It returns
// ok=false when the type alone cannot classify the volume and a probe is
// needed.
func detectFilesystem(root string) (Class, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return ClassNetwork, false
	}

	switch uint32(st.Type) {
	case nfsSuperMagic, smbSuperMagic, cifsSuperMagic, smb2SuperMagic:
		return ClassNetwork, true
	case fuseSuperMagic:
		// FUSE hides the real backing store; treat as network-like to be safe.
		return ClassNetwork, true
	}

	return ClassNetwork, false
}
