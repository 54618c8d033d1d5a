package repomd

import (
	"path/filepath"

	"github.com/hughsie/zif-sub003/keyedarray"
	"github.com/hughsie/zif-sub003/ziferr"
)

// Store is the Repo Metadata Store: it owns the parsed repomd.xml for one
// repository and lazily constructs the Metadata variant for each
// referenced data type, keyed by DataType so a second request for the
// same type returns the same instance instead of reopening it.
type Store struct {
	baseDir  string
	master   *Master
	variants *keyedarray.Array[Metadata]
}

// NewStore returns a Store rooted at baseDir, the directory containing
// repodata/repomd.xml.
func NewStore(baseDir string) *Store {
	return &Store{
		baseDir:  baseDir,
		master:   NewMaster(filepath.Join(baseDir, "repodata", "repomd.xml")),
		variants: keyedarray.New(func(m Metadata) string { return m.ID() }),
	}
}

// Load parses repomd.xml. Individual data variants are constructed and
// loaded lazily via Primary/Filelists as they're requested.
func (s *Store) Load() error {
	return s.master.Load()
}

// Master returns the parsed repomd.xml manifest.
func (s *Store) Master() *Master { return s.master }

func (s *Store) resolvedPath(t DataType) (string, error) {
	entry, ok := s.master.Entry(t)
	if !ok {
		return "", ziferr.Sentinel(ziferr.NotFound)
	}
	return filepath.Join(s.baseDir, entry.Location), nil
}

// Primary returns the loaded primary index, constructing and loading it
// on first use.
func (s *Store) Primary() (*Primary, error) {
	if m, ok := s.variants.LookupByKey(string(DataTypePrimaryDB)); ok {
		return m.(*Primary), nil
	}
	path, err := s.resolvedPath(DataTypePrimaryDB)
	if err != nil {
		return nil, err
	}
	p := NewPrimary(path)
	if err := p.Load(); err != nil {
		return nil, err
	}
	s.variants.Add(p)
	return p, nil
}

// Filelists returns the loaded filelists index, constructing and loading
// it on first use.
func (s *Store) Filelists() (*Filelists, error) {
	if m, ok := s.variants.LookupByKey(string(DataTypeFilelistsDB)); ok {
		return m.(*Filelists), nil
	}
	path, err := s.resolvedPath(DataTypeFilelistsDB)
	if err != nil {
		return nil, err
	}
	f := NewFilelists(path)
	if err := f.Load(); err != nil {
		return nil, err
	}
	s.variants.Add(f)
	return f, nil
}

// Clean removes every loaded variant's backing file plus repomd.xml
// itself.
func (s *Store) Clean() error {
	for _, v := range s.variants.All() {
		if err := v.Clean(); err != nil {
			return err
		}
	}
	return s.master.Clean()
}

// Unload closes every loaded variant without deleting backing files.
func (s *Store) Unload() error {
	for _, v := range s.variants.All() {
		if err := v.Unload(); err != nil {
			return err
		}
	}
	return s.master.Unload()
}
