// Package repomd parses and serves repository metadata: the repomd.xml
// manifest, the primary and filelists SQLite indices it references, and
// metalink mirror documents. Each concrete parser implements Metadata,
// replacing the original library's ZifRepoMd base class and its
// Primary/Filelists/Metalink/Master subclasses (a GObject inheritance
// hierarchy with no shared virtual state beyond id/filename/loaded) with
// one small interface and tagged variants.
package repomd

import (
	"time"
)

// Metadata is implemented by every repo metadata variant (master,
// primary, filelists, metalink).
type Metadata interface {
	// ID returns the variant's identifier: the repomd.xml data type for
	// the SQLite indices ("primary_db", "filelists_db"), "repomd" for the
	// master manifest and "metalink" for a metalink document.
	ID() string
	// Filename returns the local path Load was given, once loaded.
	Filename() string
	// Load parses or opens the backing file.
	Load() error
	// Clean removes the backing file from disk, if present.
	Clean() error
	// Unload releases any open handles (e.g. a SQLite connection)
	// without deleting the backing file.
	Unload() error
}

// DataType names one <data> entry in repomd.xml.
type DataType string

const (
	DataTypePrimary     DataType = "primary"
	DataTypePrimaryDB   DataType = "primary_db"
	DataTypeFilelists   DataType = "filelists"
	DataTypeFilelistsDB DataType = "filelists_db"
	DataTypeOther       DataType = "other"
	DataTypeOtherDB     DataType = "other_db"
)

// Checksum is a structurally-parsed "algo:hexdigest" value, or a legacy
// bare hex digest with a separately-known algorithm (repomd.xml specifies
// algo via a sibling <checksum type="..."> attribute rather than a
// prefix, unlike .treeinfo).
type Checksum struct {
	Algo string
	Hex  string
}

// DataEntry is one <data> element of repomd.xml.
type DataEntry struct {
	Type             DataType
	Location         string
	Checksum         Checksum
	OpenChecksum     Checksum
	Timestamp        time.Time
	Size             uint64
	OpenSize         uint64
	DatabaseVersion  int
}
