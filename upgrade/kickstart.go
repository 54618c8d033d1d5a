package upgrade

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/hughsie/zif-sub003/internal/sysconfig"
	"github.com/hughsie/zif-sub003/ziferr"
)

const (
	i18nFile     = "/etc/sysconfig/i18n"
	keyboardFile = "/etc/sysconfig/keyboard"
)

// lang returns the system language from /etc/sysconfig/i18n, matching
// zif_release_get_lang, defaulting to "en_US.UTF-8" if unreadable.
func (e *Engine) lang() string {
	f, err := os.Open(i18nFile)
	if err != nil {
		return "en_US.UTF-8"
	}
	defer f.Close()
	v, err := sysconfig.Get(f, "LANG")
	if err != nil || v == "" {
		return "en_US.UTF-8"
	}
	return v
}

// keymap returns the console keymap from /etc/sysconfig/keyboard,
// matching zif_release_get_keymap, defaulting to "us".
func (e *Engine) keymap() string {
	f, err := os.Open(keyboardFile)
	if err != nil {
		return "us"
	}
	defer f.Close()
	v, err := sysconfig.Get(f, "KEYTABLE")
	if err != nil || v == "" {
		return "us"
	}
	return v
}

// writeKickstart generates ks.cfg at path, the install-on-next-boot
// directive consumed by the staged upgrade image, matching
// zif_release_write_kickstart's literal assembled output. uuidRoot is
// spliced into "upgrade --root-device=UUID=...".
func (e *Engine) writeKickstart(path string, uuidRoot string) error {
	var b strings.Builder

	b.WriteString("# ks.cfg generated by Zif\n")
	fmt.Fprintf(&b, "lang %s\n", e.lang())
	fmt.Fprintf(&b, "keyboard %s\n", e.keymap())
	b.WriteString("bootloader --upgrade --location=none\n")
	b.WriteString("clearpart --none\n")
	fmt.Fprintf(&b, "upgrade --root-device=UUID=%s\n", uuidRoot)
	b.WriteString("reboot\n")
	b.WriteString("\n%post\n")
	fmt.Fprintf(&b, "grubby --remove-kernel=%s/vmlinuz\n", e.BootDir)

	// CacheDir is optional on the Engine; when it is unset the cleanup
	// glob falls back to BootDir, which is always present and safe to
	// re-glob.
	repoDir := e.CacheDir
	if repoDir == "" {
		repoDir = e.BootDir
	}
	fmt.Fprintf(&b, "rm -rf %s %s*\n", e.BootDir, repoDir)
	b.WriteString("%end\n")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "writing %s", path))
	}
	return nil
}
