// Package release implements the Release Catalog: the set of upgrade
// targets described by a releases.txt INI document, each target
// mirroring one [release-N] section of the original zif_upgrade object.
// releases.txt can be watched via monitor.Watcher so that Stale reports a
// change to the file backing the Catalog; the parsed entries are kept
// until the caller reloads them with Refresh or Load.
package release

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/hughsie/zif-sub003/monitor"
	"github.com/hughsie/zif-sub003/ziferr"
)

// Upgrade describes one available release target, the Go translation of
// ZifUpgrade. Version is what callers should read to learn the release
// number; the original zif_upgrade_get_version bug of returning the
// `enabled` field instead is not reproduced here (see DESIGN.md).
type Upgrade struct {
	ID                string
	Version           uint
	Enabled           bool
	Stable            bool
	BaseURL           string
	Mirrorlist        string
	InstallMirrorlist string
}

// Catalog is the parsed, in-memory set of Upgrade entries from a single
// releases.txt, optionally kept fresh by a file Watcher.
type Catalog struct {
	mu       sync.RWMutex
	path     string
	upgrades []Upgrade
	watcher  *monitor.Watcher
	changed  <-chan struct{}
}

// NewCatalog returns an empty, unloaded Catalog for the releases.txt at
// path.
func NewCatalog(path string) *Catalog {
	return &Catalog{path: path}
}

// Load (re)parses releases.txt. Each INI section becomes one Upgrade;
// the section name is used as ID unless a "id" key overrides it.
func (c *Catalog) Load() error {
	cfg, err := ini.Load(c.path)
	if err != nil {
		return ziferr.New(ziferr.InvalidMetadata, errors.Wrapf(err, "loading %s", c.path))
	}

	var upgrades []Upgrade
	for _, section := range cfg.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		u := Upgrade{
			ID:                section.Name(),
			Version:           uint(section.Key("version").MustUint(0)),
			Enabled:           section.Key("preupgrade-ok").MustBool(true),
			Stable:            section.Key("stable").MustBool(false),
			BaseURL:           section.Key("baseurl").String(),
			Mirrorlist:        section.Key("mirrorlist").String(),
			InstallMirrorlist: section.Key("installmirrorlist").String(),
		}
		if id := section.Key("id").String(); id != "" {
			u.ID = id
		}
		upgrades = append(upgrades, u)
	}

	sort.Slice(upgrades, func(i, j int) bool { return upgrades[i].Version < upgrades[j].Version })

	c.mu.Lock()
	c.upgrades = upgrades
	c.mu.Unlock()
	return nil
}

// WatchForChanges registers path with w so the Catalog can be reloaded
// via Refresh whenever releases.txt changes; it does not reload
// automatically, keeping control over when a reload happens with the
// caller.
func (c *Catalog) WatchForChanges(w *monitor.Watcher) error {
	ch, err := w.Watch(c.path)
	if err != nil {
		return err
	}
	c.watcher = w
	c.changed = ch
	return nil
}

// Stale reports whether a change notification has arrived since the last
// Load/Refresh, without blocking.
func (c *Catalog) Stale() bool {
	if c.changed == nil {
		return false
	}
	select {
	case <-c.changed:
		return true
	default:
		return false
	}
}

// Refresh reloads releases.txt if Stale reports a pending change,
// otherwise it is a no-op.
func (c *Catalog) Refresh() error {
	if !c.Stale() {
		return nil
	}
	return c.Load()
}

// All returns every enabled Upgrade, version ascending.
func (c *Catalog) All() []Upgrade {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Upgrade, 0, len(c.upgrades))
	for _, u := range c.upgrades {
		if u.Enabled {
			out = append(out, u)
		}
	}
	return out
}

// Get returns the Upgrade with the given version, if present and enabled.
func (c *Catalog) Get(version uint) (Upgrade, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, u := range c.upgrades {
		if u.Version == version && u.Enabled {
			return u, true
		}
	}
	return Upgrade{}, false
}

// NewerThanInstalled returns every enabled Upgrade with Version greater
// than installed, version ascending.
func (c *Catalog) NewerThanInstalled(installed uint) []Upgrade {
	var out []Upgrade
	for _, u := range c.All() {
		if u.Version > installed {
			out = append(out, u)
		}
	}
	return out
}

// Stablest returns the highest-versioned Stable Upgrade, if any, the
// typical default target for an unattended upgrade.
func (c *Catalog) Stablest() (Upgrade, bool) {
	all := c.All()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Stable {
			return all[i], true
		}
	}
	return Upgrade{}, false
}
