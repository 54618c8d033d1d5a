package toolexec

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hughsie/zif-sub003/ziferr"
)

// Blkid resolves filesystem UUIDs, used for the UUID references in a
// staged upgrade's kickstart and boot entry arguments.
type Blkid struct {
	Runner OutputRunner
	Bin    string // defaults to "blkid"
}

func (b Blkid) bin() string {
	if b.Bin != "" {
		return b.Bin
	}
	return "blkid"
}

// UUIDFor runs `blkid -s UUID -o value <device>` and returns the trimmed
// UUID, or a NoUuidForRoot error if blkid produced no output.
func (b Blkid) UUIDFor(ctx context.Context, device string) (string, error) {
	out, err := b.Runner.Output(ctx, b.bin(), "-s", "UUID", "-o", "value", device)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", ziferr.New(ziferr.NoUuidForRoot, errors.Errorf("no uuid for %s", device))
	}
	return out, nil
}

// Grubby manages bootloader entries (install a new kernel entry,
// make it the default for exactly one boot, remove an entry).
type Grubby struct {
	Runner Runner
	Bin    string // defaults to "grubby"
}

func (g Grubby) bin() string {
	if g.Bin != "" {
		return g.Bin
	}
	return "grubby"
}

// AddKernel installs a new boot entry for kernel/initrd with the given
// title and kernel argument string, mirroring zif_release_add_kernel.
func (g Grubby) AddKernel(ctx context.Context, kernel, initrd, title, args string) error {
	return g.Runner.Run(ctx, g.bin(),
		"--add-kernel", kernel,
		"--initrd", initrd,
		"--title", title,
		"--args", args,
	)
}

// RemoveKernel removes the boot entry for the given kernel path,
// mirroring zif_release_remove_kernel.
func (g Grubby) RemoveKernel(ctx context.Context, kernel string) error {
	return g.Runner.Run(ctx, g.bin(), "--remove-kernel", kernel)
}

// MakeDefaultOnce sets kernel as the default for the next boot only,
// mirroring zif_release_make_kernel_default_once.
func (g Grubby) MakeDefaultOnce(ctx context.Context, kernel string) error {
	return g.Runner.Run(ctx, g.bin(), "--set-default", kernel, "--set-default-once")
}

// Ybin updates a yaboot-style bootloader configuration after grubby edits
// the entry list, used on architectures where grubby alone does not
// refresh the active bootloader config.
type Ybin struct {
	Runner Runner
	Bin    string // defaults to "ybin"
}

func (y Ybin) bin() string {
	if y.Bin != "" {
		return y.Bin
	}
	return "ybin"
}

// Run invokes ybin with no arguments, refreshing the bootloader config in
// place.
func (y Ybin) Run(ctx context.Context) error {
	return y.Runner.Run(ctx, y.bin())
}

// Createrepo (re)generates a repomd.xml and its referenced indices for a
// local directory of RPMs, used when the upgrade engine must construct a
// local repository for a Complete-mode staged upgrade.
type Createrepo struct {
	Runner Runner
	Bin    string // defaults to "createrepo_c"
}

func (c Createrepo) bin() string {
	if c.Bin != "" {
		return c.Bin
	}
	return "createrepo_c"
}

// Generate builds repository metadata for dir.
func (c Createrepo) Generate(ctx context.Context, dir string) error {
	return c.Runner.Run(ctx, c.bin(), dir)
}

// Modifyrepo injects an extra file (e.g. a product id or comps.xml) into
// an existing repomd.xml's <data> list without a full createrepo rerun.
type Modifyrepo struct {
	Runner Runner
	Bin    string // defaults to "modifyrepo_c"
}

func (m Modifyrepo) bin() string {
	if m.Bin != "" {
		return m.Bin
	}
	return "modifyrepo_c"
}

// Add injects file into the repomd.xml located under repodataDir.
func (m Modifyrepo) Add(ctx context.Context, file, repodataDir string) error {
	return m.Runner.Run(ctx, m.bin(), file, repodataDir)
}

// SplitChecksum parses a ".treeinfo"-style "algo:hexdigest" checksum
// value structurally, fixing the original C implementation's fragile
// fixed "+7" byte-offset assumption that the prefix is always "sha256:".
func SplitChecksum(value string) (algo, hex string, err error) {
	i := strings.IndexByte(value, ':')
	if i < 0 {
		return "", "", errors.Errorf("toolexec: checksum %q has no algo: prefix", value)
	}
	return value[:i], value[i+1:], nil
}
