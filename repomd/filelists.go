package repomd

import (
	"database/sql"
	"strings"
	"sync"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/hughsie/zif-sub003/ziferr"
)

// Filelists wraps a filelists.sqlite index: a `filelist(pkgKey, dirname,
// filenames, filetypes)` table joined against `packages(pkgKey, pkgId)`,
// grounded on zif-repo-md-filelists.c.
type Filelists struct {
	filename string
	mu       sync.Mutex
	db       *sql.DB
}

// NewFilelists returns an unloaded Filelists that will open path on Load.
func NewFilelists(path string) *Filelists {
	return &Filelists{filename: path}
}

// ID implements Metadata.
func (f *Filelists) ID() string { return "filelists_db" }

// Filename implements Metadata.
func (f *Filelists) Filename() string { return f.filename }

// Load implements Metadata.
func (f *Filelists) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", f.filename)
	if err != nil {
		return ziferr.New(ziferr.InvalidMetadata, errors.Wrapf(err, "opening filelists db %s", f.filename))
	}
	if _, err := db.Exec("PRAGMA synchronous=OFF"); err != nil {
		db.Close()
		return ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "setting synchronous=OFF"))
	}
	f.db = db
	return nil
}

// Clean implements Metadata.
func (f *Filelists) Clean() error {
	if err := f.Unload(); err != nil {
		return err
	}
	if f.filename == "" {
		return nil
	}
	if err := removeIfExists(f.filename); err != nil {
		return ziferr.New(ziferr.WriteFailed, err)
	}
	return nil
}

// Unload implements Metadata.
func (f *Filelists) Unload() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return nil
	}
	err := f.db.Close()
	f.db = nil
	if err != nil {
		return ziferr.New(ziferr.WriteFailed, errors.Wrap(err, "closing filelists db"))
	}
	return nil
}

// Search returns the pkgIds of packages providing fullPath, splitting it
// into dirname/basename and matching each filelist row's filenames
// column by basename, mirroring
// zif_repo_md_filelists_sqlite_get_files_cb.
func (f *Filelists) Search(fullPath string) ([]string, error) {
	f.mu.Lock()
	db := f.db
	f.mu.Unlock()
	if db == nil {
		if err := f.Load(); err != nil {
			return nil, err
		}
		db = f.db
	}

	dirname, basename := splitDirBase(fullPath)

	rows, err := db.Query(
		`SELECT packages.pkgId, filelist.filenames
		   FROM filelist
		   JOIN packages ON packages.pkgKey = filelist.pkgKey
		  WHERE filelist.dirname = ?`, dirname)
	if err != nil {
		return nil, ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "querying filelists db"))
	}
	defer rows.Close()

	var pkgIDs []string
	for rows.Next() {
		var pkgID, filenames string
		if err := rows.Scan(&pkgID, &filenames); err != nil {
			return nil, err
		}
		for _, name := range strings.Split(filenames, "/") {
			if name == basename {
				pkgIDs = append(pkgIDs, pkgID)
				break
			}
		}
	}
	return pkgIDs, rows.Err()
}

func splitDirBase(fullPath string) (dir, base string) {
	i := strings.LastIndexByte(fullPath, '/')
	if i < 0 {
		return "", fullPath
	}
	return fullPath[:i], fullPath[i+1:]
}
