package upgrade

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/hughsie/zif-sub003/download"
	"github.com/hughsie/zif-sub003/internal/toolexec"
	"github.com/hughsie/zif-sub003/progress"
	"github.com/hughsie/zif-sub003/release"
	"github.com/hughsie/zif-sub003/ziferr"
)

// bootImagePaths are the local paths of every staged boot image. Stage2
// is only populated for Default and Complete upgrades, and even then may
// be empty (stage2 is optional on F15-onward trees).
type bootImagePaths struct {
	Kernel string
	Initrd string
	Stage2 string
}

const defaultBasearch = "x86_64"

// Allowed Content-Type values per staged image, matching the .treeinfo
// binding's content-type allowlist.
var (
	kernelContentTypes = []string{"application/octet-stream"}
	initrdContentTypes = []string{"application/x-gzip", "application/x-extension-img", "application/x-xz"}
	stage2ContentTypes = []string{"application/x-extension-img", "application/octet-stream"}
)

func (e *Engine) basearch() string {
	if v, ok := e.Config.GetString("basearch"); ok && v != "" {
		return v
	}
	return defaultBasearch
}

// fetchInstallMirrorList downloads the release's install-specific mirror
// list document, if one is configured, returning its local path (or ""
// if the release has none). This is its own checkpointed phase, separate
// from registerMirrorList which parses the result.
func (e *Engine) fetchInstallMirrorList(ctx context.Context, target release.Upgrade, node *progress.Node) (string, error) {
	if target.InstallMirrorlist == "" {
		return "", nil
	}
	if node != nil {
		node.ActionStart(progress.ActionDownloading, "install-mirrorlist")
		defer node.ActionStop()
	}
	dest := filepath.Join(e.BootDir, "install-mirrorlist")
	uri := e.Config.Expand(target.InstallMirrorlist)
	if err := e.Downloader.Download(ctx, uri, dest, node); err != nil {
		return "", err
	}
	return dest, nil
}

// registerMirrorList clears and repopulates the Downloader's location
// list from the release's baseurl and, if one was fetched, its install
// mirror list document, so the following .treeinfo/boot-image phases can
// resolve relative paths against the full candidate mirror set.
func (e *Engine) registerMirrorList(target release.Upgrade, installMirrorListPath string) error {
	e.Downloader.ClearLocations()

	if target.BaseURL != "" {
		src := download.LocationSource{MirrorList: strings.NewReader(e.Config.Expand(target.BaseURL) + "\n")}
		if err := e.Downloader.AddLocation(src); err != nil {
			return err
		}
	}

	if installMirrorListPath != "" {
		f, err := os.Open(installMirrorListPath)
		if err != nil {
			return ziferr.New(ziferr.NotFound, errors.Wrap(err, "opening install mirror list"))
		}
		defer f.Close()
		if err := e.Downloader.AddLocation(download.LocationSource{MirrorList: f}); err != nil {
			return err
		}
	}

	return nil
}

// fetchTreeinfo downloads and parses .treeinfo for the target release
// against the currently registered mirror locations, and validates that
// its [general].version matches the requested release.
func (e *Engine) fetchTreeinfo(ctx context.Context, target release.Upgrade, node *progress.Node) (*Treeinfo, error) {
	if node != nil {
		node.ActionStart(progress.ActionDownloading, ".treeinfo")
		defer node.ActionStop()
	}

	dest := filepath.Join(e.BootDir, ".treeinfo")
	if err := e.Downloader.DownloadLocation(ctx, ".treeinfo", dest, node); err != nil {
		return nil, err
	}

	f, err := os.Open(dest)
	if err != nil {
		return nil, ziferr.New(ziferr.NotFound, errors.Wrap(err, "opening downloaded .treeinfo"))
	}
	defer f.Close()

	ti, err := ParseTreeinfo(f, e.basearch())
	if err != nil {
		return nil, err
	}
	if err := ti.checkVersion(target.Version); err != nil {
		return nil, err
	}
	return ti, nil
}

// fetchImage stages one boot image: if a file matching img's checksum is
// already present at the destination (left over from an earlier, failed
// attempt), the download is skipped entirely; otherwise the stale file is
// removed and the image is fetched from each candidate mirror in turn
// until one both transfers and verifies.
func (e *Engine) fetchImage(ctx context.Context, target release.Upgrade, img stagedImage, contentTypes []string, node *progress.Node) (string, error) {
	dest := filepath.Join(e.BootDir, filepath.Base(img.path))

	algo, wantHex, err := toolexec.SplitChecksum(img.checksum)
	if err != nil {
		return "", ziferr.New(ziferr.InvalidMetadata, err)
	}

	if ok, _ := download.VerifyChecksum(dest, algo, wantHex); ok {
		return dest, nil
	}
	_ = os.Remove(dest)

	set := e.releaseMirrorSet(target)
	var lastErr error
	for {
		base, ok := set.Next()
		if !ok {
			if lastErr != nil {
				return "", lastErr
			}
			return "", ziferr.New(ziferr.DownloadFailed, errors.Errorf("no mirror available for %s", img.path))
		}
		uri := base + "/" + img.path
		if err := e.Downloader.DownloadWithVerify(ctx, uri, dest, 0, contentTypes, algo, wantHex, node); err != nil {
			log.WithError(err).WithField("uri", uri).Warn("boot image fetch failed, trying next mirror")
			lastErr = err
			continue
		}
		return dest, nil
	}
}
