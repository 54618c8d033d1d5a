package upgrade

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/hughsie/zif-sub003/progress"
	"github.com/hughsie/zif-sub003/release"
	"github.com/hughsie/zif-sub003/ziferr"
)

// buildLocalRepository creates a fresh per-attempt scratch directory
// under CacheDir, asks e.Repos (when set) for its enabled base URLs, and
// runs createrepo over the scratch directory. It downloads no packages:
// the base URLs are not used, so the scratch directory holds no RPMs, and
// modifyrepo is not run.
func (e *Engine) buildLocalRepository(ctx context.Context, target release.Upgrade, node *progress.Node) error {
	if node != nil {
		node.ActionStart(progress.ActionDownloadingPackages, target.ID)
		defer node.ActionStop()
	}

	if e.CacheDir == "" {
		return ziferr.New(ziferr.SetupInvalid, errors.New("upgrade: CacheDir is required for Complete upgrades"))
	}
	scratch := e.newScratchDir()
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "creating %s", scratch))
	}

	if e.Repos != nil {
		if _, err := e.Repos.EnabledBaseURLs(ctx); err != nil {
			return ziferr.New(ziferr.DownloadFailed, errors.Wrap(err, "listing enabled repositories"))
		}
		// Per-package resolution and download against those base URLs is
		// delegated to Repos/LocalStore collaborators (out of scope,
		// see SPEC_FULL.md §6); this engine only owns staging the
		// resulting directory into a bootable local repository.
	}

	// createrepo builds the staged local repository itself rather than
	// mutating the current boot configuration, so it runs unconditionally
	// even when dryRun is true for boot-entry commands.
	return e.Createrepo.Generate(ctx, scratch)
}
