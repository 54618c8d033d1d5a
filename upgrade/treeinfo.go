package upgrade

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/hughsie/zif-sub003/internal/toolexec"
	"github.com/hughsie/zif-sub003/ziferr"
)

// Treeinfo wraps a parsed .treeinfo document: an INI file (a GKeyFile in
// the original) with an [images-<basearch>] section naming the staged
// boot images and a [checksums] section mapping each relative path to an
// "algo:hexdigest" value, matching zif_release_get_treeinfo and
// zif_release_get_kernel/get_initrd/get_stage2.
type Treeinfo struct {
	file     *ini.File
	basearch string
}

// ParseTreeinfo reads a .treeinfo document for the given base
// architecture (e.g. "x86_64").
func ParseTreeinfo(r io.Reader, basearch string) (*Treeinfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "reading .treeinfo"))
	}
	file, err := ini.Load(data)
	if err != nil {
		return nil, ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "parsing .treeinfo"))
	}
	return &Treeinfo{file: file, basearch: basearch}, nil
}

// checkVersion validates [general].version against the requested release
// version, matching the .treeinfo binding contract: a mismatch means the
// mirror served metadata for the wrong release entirely.
func (t *Treeinfo) checkVersion(want uint) error {
	section, err := t.file.GetSection("general")
	if err != nil {
		return ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "no general section in .treeinfo"))
	}
	got, err := section.Key("version").Uint()
	if err != nil {
		return ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, ".treeinfo: general.version is not an integer"))
	}
	if uint(got) != want {
		return ziferr.New(ziferr.InvalidMetadata, errors.Errorf(".treeinfo: general.version %d does not match requested release %d", got, want))
	}
	return nil
}

func (t *Treeinfo) imagePath(key string) (string, error) {
	section, err := t.file.GetSection("images-" + t.basearch)
	if err != nil {
		return "", ziferr.New(ziferr.InvalidMetadata, errors.Wrapf(err, "no images-%s section in .treeinfo", t.basearch))
	}
	k := section.Key(key)
	if k.String() == "" {
		return "", ziferr.New(ziferr.NotFound, errors.Errorf(".treeinfo: no %q entry for %s", key, t.basearch))
	}
	return k.String(), nil
}

func (t *Treeinfo) checksumFor(relPath string) (string, error) {
	section, err := t.file.GetSection("checksums")
	if err != nil {
		return "", ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "no checksums section in .treeinfo"))
	}
	k := section.Key(relPath)
	if k.String() == "" {
		return "", ziferr.New(ziferr.InvalidMetadata, errors.Errorf(".treeinfo: no checksum for %s", relPath))
	}
	return k.String(), nil
}

// stagedImage names one boot image's relative path and verified checksum.
type stagedImage struct {
	path     string
	checksum string
}

func (t *Treeinfo) kernel() (stagedImage, error) { return t.image("kernel") }
func (t *Treeinfo) initrd() (stagedImage, error) { return t.image("initrd") }
func (t *Treeinfo) stage2() (stagedImage, error) { return t.image("upgrade") }

func (t *Treeinfo) image(key string) (stagedImage, error) {
	path, err := t.imagePath(key)
	if err != nil {
		return stagedImage{}, err
	}
	checksum, err := t.checksumFor(path)
	if err != nil {
		return stagedImage{}, err
	}
	// validate format eagerly via the structural parser rather than the
	// original's brittle "+7" byte offset.
	if _, _, err := toolexec.SplitChecksum(checksum); err != nil {
		return stagedImage{}, ziferr.New(ziferr.InvalidMetadata, err)
	}
	return stagedImage{path: path, checksum: checksum}, nil
}
