// Package zif wires the release-upgrade engine's components together
// into one constructor, the entry point a consumer reaches for instead
// of assembling progress/download/repomd/release/upgrade by hand.
package zif

import (
	"github.com/hughsie/zif-sub003/config"
	"github.com/hughsie/zif-sub003/download"
	"github.com/hughsie/zif-sub003/internal/toolexec"
	"github.com/hughsie/zif-sub003/monitor"
	"github.com/hughsie/zif-sub003/release"
	"github.com/hughsie/zif-sub003/upgrade"
)

// Options configures New. BootDir and ReleasesPath are required; every
// other field has a sensible production default.
type Options struct {
	// BootDir is where staged kernel/initrd/stage2/kickstart files are
	// written. It must be under /boot for the upgrade engine to actually
	// run boot-entry-modifying commands rather than just logging them.
	BootDir string
	// CacheDir is where a Complete-mode local package repository is
	// built. Optional for Minimal/Default upgrades.
	CacheDir string
	// ReleasesPath is the releases.txt to load the release catalog from.
	ReleasesPath string

	Config     config.Configuration
	Downloader download.Downloader
}

// Engine bundles the upgrade engine with the release catalog and file
// watcher that feed it, so a caller only needs to hold one value.
type Engine struct {
	*upgrade.Engine
	Catalog *release.Catalog
	Watcher *monitor.Watcher
}

// New constructs a fully wired Engine: a release.Catalog loaded from
// opts.ReleasesPath and watched via a monitor.Watcher (Catalog.Refresh
// reloads it after a change), and an
// upgrade.Engine using opts.Config/opts.Downloader and the real
// (os/exec-backed) toolexec implementations for blkid/grubby/ybin/
// createrepo/modifyrepo.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewMap()
	}
	dl := opts.Downloader
	if dl == nil {
		dl = download.NewHTTP()
	}

	catalog := release.NewCatalog(opts.ReleasesPath)
	if err := catalog.Load(); err != nil {
		return nil, err
	}

	watcher := monitor.New()
	if err := catalog.WatchForChanges(watcher); err != nil {
		watcher.Close()
		return nil, err
	}

	real := toolexec.Real{}
	ue := &upgrade.Engine{
		Config:     cfg,
		Downloader: dl,
		Blkid:      toolexec.Blkid{Runner: real},
		Grubby:     toolexec.Grubby{Runner: real},
		Ybin:       toolexec.Ybin{Runner: real},
		Createrepo: toolexec.Createrepo{Runner: real},
		Modifyrepo: toolexec.Modifyrepo{Runner: real},
		BootDir:    opts.BootDir,
		CacheDir:   opts.CacheDir,
	}

	return &Engine{Engine: ue, Catalog: catalog, Watcher: watcher}, nil
}

// Close stops the background file watcher. Callers that construct an
// Engine via New should defer Close.
func (e *Engine) Close() {
	if e.Watcher != nil {
		e.Watcher.Close()
	}
}
