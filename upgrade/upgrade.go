// Package upgrade implements the Upgrade Engine, the centerpiece
// component translating zif_release_upgrade_version and its supporting
// zif_release_get_*/zif_release_write_kickstart/zif_release_add_kernel
// family into Go. An Engine stages a release upgrade by downloading a
// kernel/initrd/stage2 plus a generated kickstart file and registering a
// one-shot boot entry for them; it does not perform the upgrade itself
// (that happens on the next boot, driven by the kickstart), matching the
// original preupgrade/distribution-upgrade model.
package upgrade

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hughsie/zif-sub003/config"
	"github.com/hughsie/zif-sub003/download"
	"github.com/hughsie/zif-sub003/internal/diskspace"
	"github.com/hughsie/zif-sub003/internal/toolexec"
	"github.com/hughsie/zif-sub003/mirror"
	"github.com/hughsie/zif-sub003/progress"
	"github.com/hughsie/zif-sub003/release"
	"github.com/hughsie/zif-sub003/ziferr"
)

var log = logrus.WithField("pkg", "upgrade")

// Kind selects how thorough a staged upgrade is, matching the three
// modes zif_release_upgrade_version dispatches on.
type Kind int

const (
	// Minimal stages only kernel, initrd and a kickstart file that
	// points back at the network repository for everything else.
	Minimal Kind = iota
	// Default additionally stages stage2.
	Default
	// Complete additionally runs createrepo over a scratch directory under
	// CacheDir (see buildLocalRepository) and adds a repo= argument
	// pointing at CacheDir to the boot entry.
	Complete
)

func (k Kind) String() string {
	switch k {
	case Minimal:
		return "minimal"
	case Default:
		return "default"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// weights returns the relative step weights for each Kind, matching the
// per-kind phase table zif_release_upgrade_version builds: Setup & UUID
// discovery, fetch install mirror list, register mirror list, fetch
// .treeinfo, fetch kernel, fetch initrd, fetch stage2 (Default/Complete
// only), build local repository (Complete only), install boot entry.
func (k Kind) weights() []uint32 {
	switch k {
	case Minimal:
		return []uint32{
			1,  // setup & uuid discovery
			5,  // fetch install mirror list
			1,  // register mirror list
			3,  // fetch .treeinfo
			15, // fetch kernel image
			70, // fetch initrd image
			5,  // install boot entry
		}
	case Default:
		return []uint32{
			1,  // setup & uuid discovery
			5,  // fetch install mirror list
			1,  // register mirror list
			3,  // fetch .treeinfo
			15, // fetch kernel image
			20, // fetch initrd image
			50, // fetch stage2 image
			5,  // install boot entry
		}
	case Complete:
		return []uint32{
			1,  // setup & uuid discovery
			5,  // fetch install mirror list
			1,  // register mirror list
			3,  // fetch .treeinfo
			5,  // fetch kernel image
			20, // fetch initrd image
			30, // fetch stage2 image
			30, // build per-release package repository
			5,  // install boot entry
		}
	default:
		return []uint32{100}
	}
}

// LocalStore is the external collaborator representing locally installed
// package state; the Upgrade Engine only ever reads it. Building and
// maintaining it is out of scope for this module.
type LocalStore interface {
	InstalledVersion(ctx context.Context) (uint, error)
}

// Repos is the external collaborator representing enabled package
// repositories; the Upgrade Engine delegates transaction-level package
// resolution to it. Implementing it is out of scope for this module.
type Repos interface {
	EnabledBaseURLs(ctx context.Context) ([]string, error)
}

// Engine orchestrates a staged release upgrade.
type Engine struct {
	Config     config.Configuration
	Downloader download.Downloader

	Blkid      toolexec.Blkid
	Grubby     toolexec.Grubby
	Ybin       toolexec.Ybin
	Createrepo toolexec.Createrepo
	Modifyrepo toolexec.Modifyrepo

	// BootDir is where the staged kernel/initrd/stage2/kickstart are
	// written. Boot-entry-modifying commands are only ever actually run
	// when BootDir has the "/boot" prefix; otherwise they are logged
	// instead, so a test harness can drive a full UpgradeTo safely.
	BootDir string
	// CacheDir is where a Complete-mode local package repository is
	// built.
	CacheDir string

	LocalStore LocalStore
	Repos      Repos
}

// dryRun reports whether boot-entry-modifying commands should be logged
// instead of executed, the gate described for scenario S1: any BootDir
// not rooted at "/boot" is treated as a test/staging sandbox.
func (e *Engine) dryRun() bool {
	return len(e.BootDir) < 5 || e.BootDir[:5] != "/boot"
}

func (e *Engine) runOrLog(ctx context.Context, label string, fn func(context.Context) error) error {
	if e.dryRun() {
		log.WithField("phase", label).Info("dry-run: would execute boot-entry command, skipping")
		return nil
	}
	return fn(ctx)
}

// UpgradeTo stages an upgrade to the given Upgrade target at the given
// Kind, reporting progress on root. root must be Fresh; UpgradeTo calls
// Begin on it itself, matching the mandatory Begin/Done contract of the
// progress package.
func (e *Engine) UpgradeTo(ctx context.Context, target release.Upgrade, kind Kind, root *progress.Node) error {
	if err := e.preflight(target); err != nil {
		return err
	}

	if kind == Complete {
		// releasever is spliced into mirror URIs and the per-release
		// repository build; it must reflect the target release for the
		// duration of this call and nothing else, restored on every exit
		// path including error returns.
		restore := config.OverrideUint(e.Config, "releasever", uint64(target.Version))
		defer restore()
	}

	weights := kind.weights()
	if err := root.Begin(weights); err != nil {
		return err
	}

	// Phase: setup & UUID discovery.
	if err := root.CheckCancelled(); err != nil {
		return err
	}
	if err := e.checkFilesystem(); err != nil {
		return err
	}
	uuidRoot, err := e.rootUUID(ctx)
	if err != nil {
		return err
	}
	uuidBoot, err := e.bootUUID(ctx)
	if err != nil {
		return err
	}
	if err := root.Done(); err != nil {
		return err
	}

	// Phase: fetch install mirror list.
	installMirrorListPath, err := e.fetchInstallMirrorList(ctx, target, root.Child())
	if err != nil {
		return err
	}
	if err := root.Done(); err != nil {
		return err
	}

	// Phase: register mirror list.
	if err := e.registerMirrorList(target, installMirrorListPath); err != nil {
		return err
	}
	if err := root.Done(); err != nil {
		return err
	}

	// Phase: fetch .treeinfo.
	ti, err := e.fetchTreeinfo(ctx, target, root.Child())
	if err != nil {
		return err
	}
	if err := root.Done(); err != nil {
		return err
	}

	// Phase: fetch kernel image.
	kernelImg, err := ti.kernel()
	if err != nil {
		return err
	}
	kernelPath, err := e.fetchImage(ctx, target, kernelImg, kernelContentTypes, root.Child())
	if err != nil {
		return err
	}
	if err := root.Done(); err != nil {
		return err
	}

	// Phase: fetch initrd image.
	initrdImg, err := ti.initrd()
	if err != nil {
		return err
	}
	initrdPath, err := e.fetchImage(ctx, target, initrdImg, initrdContentTypes, root.Child())
	if err != nil {
		return err
	}
	if err := root.Done(); err != nil {
		return err
	}

	paths := bootImagePaths{Kernel: kernelPath, Initrd: initrdPath}

	// Phase: fetch stage2 image (Default/Complete only; optional even then).
	if kind != Minimal {
		stage2Img, stErr := ti.stage2()
		switch {
		case stErr == nil:
			stage2Path, ferr := e.fetchImage(ctx, target, stage2Img, stage2ContentTypes, root.Child())
			if ferr != nil {
				return ferr
			}
			paths.Stage2 = stage2Path
		case ziferr.Is(stErr, ziferr.NotFound):
			// stage2 is optional from F15 onward; proceed without it.
		default:
			return stErr
		}
		if err := root.Done(); err != nil {
			return err
		}
	}

	// Phase: build per-release package repository (Complete only).
	if kind == Complete {
		if err := e.buildLocalRepository(ctx, target, root.Child()); err != nil {
			return err
		}
		if err := root.Done(); err != nil {
			return err
		}
	}

	// Phase: install boot entry (kernel + initrd + kickstart).
	ksPath := filepath.Join(e.BootDir, "ks.cfg")
	if err := e.writeKickstart(ksPath, uuidRoot); err != nil {
		return err
	}
	if err := e.registerBootEntry(ctx, paths, target, kind, uuidBoot); err != nil {
		return err
	}
	return root.Done()
}

func (e *Engine) preflight(target release.Upgrade) error {
	if e.Config == nil {
		return ziferr.New(ziferr.SetupInvalid, errors.New("upgrade: Config is required"))
	}
	if e.Downloader == nil {
		return ziferr.New(ziferr.SetupInvalid, errors.New("upgrade: Downloader is required"))
	}
	if e.BootDir == "" {
		return ziferr.New(ziferr.SetupInvalid, errors.New("upgrade: BootDir is required"))
	}
	if target.BaseURL == "" && target.Mirrorlist == "" {
		return ziferr.New(ziferr.SetupInvalid, errors.Errorf("upgrade: release %s has neither baseurl nor mirrorlist", target.ID))
	}
	return nil
}

// checkFilesystem ensures BootDir (and CacheDir, if set) exist and have
// enough free space, matching the preflight contract that the boot
// staging directory "exists or is creatable".
func (e *Engine) checkFilesystem() error {
	if err := os.MkdirAll(e.BootDir, 0755); err != nil {
		return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "creating %s", e.BootDir))
	}
	if err := diskspace.RequireAvailable(e.BootDir, diskspace.BootDirMinBytes); err != nil {
		return err
	}
	if e.CacheDir != "" {
		if err := os.MkdirAll(e.CacheDir, 0755); err != nil {
			return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "creating %s", e.CacheDir))
		}
		if err := diskspace.RequireAvailable(e.CacheDir, diskspace.CacheDirMinBytes); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) releaseMirrorSet(target release.Upgrade) *mirror.Set {
	set := mirror.NewSet()
	if target.BaseURL != "" {
		set.AddMirrorList(strings.NewReader(e.Config.Expand(target.BaseURL) + "\n"))
	}
	return set
}

// registerBootEntry removes any previously staged upgrade kernel, adds
// the new one, and marks it default for exactly one boot, matching
// zif_release_add_kernel/zif_release_remove_kernel/
// zif_release_make_kernel_default_once. On ppc, yaboot forbids spaces in
// titles and requires a ybin run to pick up the grub changes.
func (e *Engine) registerBootEntry(ctx context.Context, paths bootImagePaths, target release.Upgrade, kind Kind, uuidBoot string) error {
	basearch := e.basearch()
	title := fmt.Sprintf("Upgrade to Fedora %d", target.Version)
	if strings.HasPrefix(basearch, "ppc") {
		title = "upgrade"
	}

	args := fmt.Sprintf("preupgrade ks=hd:UUID=%s:/upgrade/ks.cfg", uuidBoot)
	if paths.Stage2 != "" {
		args += fmt.Sprintf(" stage2=hd:UUID=%s:/upgrade/install.img", uuidBoot)
	}
	if kind == Complete {
		args += fmt.Sprintf(" repo=hd::%s", e.CacheDir)
	}
	args += " ksdevice=link ip=dhcp ipv6=dhcp"

	vmlinuz := filepath.Join(e.BootDir, "vmlinuz")

	return e.runOrLog(ctx, "register-boot-entry", func(ctx context.Context) error {
		if err := e.Grubby.RemoveKernel(ctx, vmlinuz); err != nil {
			return err
		}
		if err := e.Grubby.AddKernel(ctx, paths.Kernel, paths.Initrd, title, args); err != nil {
			return err
		}
		if err := e.Grubby.MakeDefaultOnce(ctx, vmlinuz); err != nil {
			return err
		}
		if strings.HasPrefix(basearch, "ppc") {
			return e.Ybin.Run(ctx)
		}
		return nil
	})
}

// RemoveStagedUpgrade reverses registerBootEntry and removes the staged
// files, for callers that need to cancel a pending upgrade.
func (e *Engine) RemoveStagedUpgrade(ctx context.Context, paths bootImagePaths) error {
	vmlinuz := filepath.Join(e.BootDir, "vmlinuz")
	if err := e.runOrLog(ctx, "remove-boot-entry", func(ctx context.Context) error {
		return e.Grubby.RemoveKernel(ctx, vmlinuz)
	}); err != nil {
		return err
	}
	for _, p := range []string{paths.Kernel, paths.Initrd, paths.Stage2} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "removing %s", p))
		}
	}
	return nil
}
