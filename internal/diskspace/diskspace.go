// Package diskspace checks free space on a filesystem, the Go
// translation of zif_release_check_filesystem_size's statvfs call.
package diskspace

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hughsie/zif-sub003/ziferr"
)

// Available returns the number of free bytes available to an unprivileged
// user on the filesystem containing path.
func Available(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, errors.Wrapf(err, "statfs %s", path)
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}

// RequireAvailable returns a ziferr.Error of Kind LowDiskSpace if path has
// fewer than required bytes free.
func RequireAvailable(path string, required uint64) error {
	avail, err := Available(path)
	if err != nil {
		return err
	}
	if avail < required {
		return ziferr.New(ziferr.LowDiskSpace, &ziferr.LowDiskSpaceDetail{
			Path:      path,
			Required:  required,
			Available: avail,
		})
	}
	return nil
}

// Standard thresholds used by the upgrade engine's preflight checks.
const (
	// BootDirMinBytes is the minimum free space required in the boot
	// staging directory (26 MiB: kernel + initrd + stage2 + margin).
	BootDirMinBytes = 26 * 1024 * 1024
	// CacheDirMinBytes is the minimum free space required in the package
	// cache directory for a Complete-mode upgrade's local repository.
	CacheDirMinBytes = 700 * 1024 * 1024
)
