package upgrade

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
)

// rootDevice is the device blkid resolves the root UUID against for the
// kickstart's "upgrade --root-device=UUID=..." line; callers that know
// their root device override this via Config's "root_device" key,
// defaulting to /dev/disk/by-label/root.
func (e *Engine) rootDevice() string {
	if v, ok := e.Config.GetString("root_device"); ok && v != "" {
		return v
	}
	return "/dev/disk/by-label/root"
}

// rootUUID resolves the root filesystem's UUID via blkid, matching
// zif_release_get_uuid, for the kickstart's root-device line. It returns
// ("", nil) rather than erroring when no Blkid runner is configured; no
// LABEL= or other substitute is generated, so the UUID fields of the
// kickstart and the boot entry arguments are then left empty.
func (e *Engine) rootUUID(ctx context.Context) (string, error) {
	if e.Blkid.Runner == nil {
		return "", nil
	}
	return e.Blkid.UUIDFor(ctx, e.rootDevice())
}

// bootDevice is the device backing the filesystem mounted at /boot,
// overridden via Config's "boot_device" key; unset means "unknown", in
// which case bootUUID falls back to the root UUID.
func (e *Engine) bootDevice() string {
	v, _ := e.Config.GetString("boot_device")
	return v
}

// bootUUID resolves the UUID of the device mounted at /boot, falling back
// to the root filesystem's UUID when no boot device is configured or
// resolvable, matching the original's /etc/mtab-derived fallback.
func (e *Engine) bootUUID(ctx context.Context) (string, error) {
	dev := e.bootDevice()
	if dev == "" || e.Blkid.Runner == nil {
		return e.rootUUID(ctx)
	}
	uuid, err := e.Blkid.UUIDFor(ctx, dev)
	if err != nil || uuid == "" {
		return e.rootUUID(ctx)
	}
	return uuid, nil
}

// newScratchDir returns a unique, per-attempt subdirectory of CacheDir so
// concurrent or resumed UpgradeTo calls for different targets never
// collide on disk.
func (e *Engine) newScratchDir() string {
	return filepath.Join(e.CacheDir, "attempt-"+uuid.NewString())
}
