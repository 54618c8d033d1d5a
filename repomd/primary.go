package repomd

import (
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/hughsie/zif-sub003/ziferr"
)

// Package is one row of the primary.sqlite `packages` table, matching
// the columns queried by zif_repo_md_primary_search.
type Package struct {
	PkgID       string
	Name        string
	Arch        string
	Version     string
	Epoch       string
	Release     string
	Summary     string
	Description string
	URL         string
	License     string
	Group       string
	SizePackage uint64
	Location    string
}

const primaryColumns = `pkgId, name, arch, version, epoch, release, summary, description, url, rpm_license, rpm_group, size_package, location_href`

// Primary wraps a primary.sqlite index, the package name/version/summary
// search database referenced by repomd.xml's "primary_db" entry.
// Grounded on zif-repo-md-primary.c: lazy-open, PRAGMA synchronous=OFF,
// parameter-bound queries (the original builds these with raw Sprintf
// interpolation, a SQL-injection surface against repo-supplied search
// terms; this uses database/sql placeholders instead).
type Primary struct {
	filename string
	mu       sync.Mutex
	db       *sql.DB
}

// NewPrimary returns an unloaded Primary that will open path on Load.
func NewPrimary(path string) *Primary {
	return &Primary{filename: path}
}

// ID implements Metadata.
func (p *Primary) ID() string { return "primary_db" }

// Filename implements Metadata.
func (p *Primary) Filename() string { return p.filename }

// Load implements Metadata, lazily: it only verifies the file opens, the
// same way zif_repo_md_primary_load defers the actual sqlite3_open until
// first query.
func (p *Primary) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", p.filename)
	if err != nil {
		return ziferr.New(ziferr.InvalidMetadata, errors.Wrapf(err, "opening primary db %s", p.filename))
	}
	if _, err := db.Exec("PRAGMA synchronous=OFF"); err != nil {
		db.Close()
		return ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "setting synchronous=OFF"))
	}
	p.db = db
	return nil
}

// Clean implements Metadata.
func (p *Primary) Clean() error {
	if err := p.Unload(); err != nil {
		return err
	}
	if p.filename == "" {
		return nil
	}
	if err := removeIfExists(p.filename); err != nil {
		return ziferr.New(ziferr.WriteFailed, err)
	}
	return nil
}

// Unload implements Metadata, closing the sqlite connection if open.
func (p *Primary) Unload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	if err != nil {
		return ziferr.New(ziferr.WriteFailed, errors.Wrap(err, "closing primary db"))
	}
	return nil
}

func (p *Primary) ensureLoaded() (*sql.DB, error) {
	if err := p.Load(); err != nil {
		return nil, err
	}
	return p.db, nil
}

func scanPackages(rows *sql.Rows) ([]Package, error) {
	var out []Package
	for rows.Next() {
		var pkg Package
		if err := rows.Scan(&pkg.PkgID, &pkg.Name, &pkg.Arch, &pkg.Version, &pkg.Epoch,
			&pkg.Release, &pkg.Summary, &pkg.Description, &pkg.URL, &pkg.License,
			&pkg.Group, &pkg.SizePackage, &pkg.Location); err != nil {
			return nil, err
		}
		out = append(out, pkg)
	}
	return out, rows.Err()
}

// Resolve returns the package(s) with an exact name match, mirroring
// zif_repo_md_primary_resolve.
func (p *Primary) Resolve(name string) ([]Package, error) {
	db, err := p.ensureLoaded()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query("SELECT "+primaryColumns+" FROM packages WHERE name = ?", name)
	if err != nil {
		return nil, ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "querying primary db"))
	}
	defer rows.Close()
	return scanPackages(rows)
}

// Find returns the package(s) matching both name and arch exactly,
// mirroring zif_repo_md_primary_find (the $arch-qualified lookup used
// when resolving a specific package rather than every arch of it).
func (p *Primary) Find(name, arch string) ([]Package, error) {
	db, err := p.ensureLoaded()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query("SELECT "+primaryColumns+" FROM packages WHERE name = ? AND arch = ?", name, arch)
	if err != nil {
		return nil, ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "querying primary db"))
	}
	defer rows.Close()
	return scanPackages(rows)
}

// SearchName returns packages whose name contains the substring term,
// mirroring zif_repo_md_primary_search_name.
func (p *Primary) SearchName(term string) ([]Package, error) {
	db, err := p.ensureLoaded()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query("SELECT "+primaryColumns+" FROM packages WHERE name LIKE ?", "%"+term+"%")
	if err != nil {
		return nil, ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "querying primary db"))
	}
	defer rows.Close()
	return scanPackages(rows)
}

// SearchDetails returns packages whose name, summary or description
// contains the substring term, mirroring
// zif_repo_md_primary_search_details.
func (p *Primary) SearchDetails(term string) ([]Package, error) {
	db, err := p.ensureLoaded()
	if err != nil {
		return nil, err
	}
	like := "%" + term + "%"
	rows, err := db.Query("SELECT "+primaryColumns+" FROM packages WHERE name LIKE ? OR summary LIKE ? OR description LIKE ?", like, like, like)
	if err != nil {
		return nil, ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "querying primary db"))
	}
	defer rows.Close()
	return scanPackages(rows)
}

// FindByPkgID returns the package with the given pkgId checksum, or a
// NotFound error if absent.
func (p *Primary) FindByPkgID(pkgID string) (Package, error) {
	db, err := p.ensureLoaded()
	if err != nil {
		return Package{}, err
	}
	row := db.QueryRow("SELECT "+primaryColumns+" FROM packages WHERE pkgId = ?", pkgID)
	var pkg Package
	if err := row.Scan(&pkg.PkgID, &pkg.Name, &pkg.Arch, &pkg.Version, &pkg.Epoch,
		&pkg.Release, &pkg.Summary, &pkg.Description, &pkg.URL, &pkg.License,
		&pkg.Group, &pkg.SizePackage, &pkg.Location); err != nil {
		if err == sql.ErrNoRows {
			return Package{}, ziferr.New(ziferr.NotFound, errors.Errorf("no package with pkgId %s", pkgID))
		}
		return Package{}, ziferr.New(ziferr.InvalidMetadata, err)
	}
	return pkg, nil
}

// All returns every package row in the index.
func (p *Primary) All() ([]Package, error) {
	db, err := p.ensureLoaded()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query("SELECT " + primaryColumns + " FROM packages")
	if err != nil {
		return nil, ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "querying primary db"))
	}
	defer rows.Close()
	return scanPackages(rows)
}
