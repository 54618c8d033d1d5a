package repomd

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/hughsie/zif-sub003/ziferr"
)

// Master parses repomd.xml, the manifest that points at every other
// metadata file in a repository. It is a hand-rolled token-loop parser
// (rather than a struct-tag Unmarshal) so the "a <data> with a <location>
// must also carry a checksum and a non-zero timestamp" validation rule
// can be checked incrementally, matching the original's
// zif_repo_md_master_parser_end_element logic.
type Master struct {
	filename string
	loaded   bool
	entries  map[DataType]*DataEntry
}

// NewMaster returns an unloaded Master that will read path on Load.
func NewMaster(path string) *Master {
	return &Master{filename: path, entries: make(map[DataType]*DataEntry)}
}

// ID implements Metadata.
func (m *Master) ID() string { return "repomd" }

// Filename implements Metadata.
func (m *Master) Filename() string { return m.filename }

// Load implements Metadata, parsing the repomd.xml at m.Filename().
func (m *Master) Load() error {
	f, err := os.Open(m.filename)
	if err != nil {
		return ziferr.New(ziferr.NotFound, errors.Wrapf(err, "opening %s", m.filename))
	}
	defer f.Close()

	entries, err := ParseRepomd(f)
	if err != nil {
		return err
	}
	m.entries = entries
	m.loaded = true
	return nil
}

// Clean implements Metadata, removing the backing file.
func (m *Master) Clean() error {
	if m.filename == "" {
		return nil
	}
	if err := os.Remove(m.filename); err != nil && !os.IsNotExist(err) {
		return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "removing %s", m.filename))
	}
	return nil
}

// Unload implements Metadata.
func (m *Master) Unload() error {
	m.loaded = false
	m.entries = make(map[DataType]*DataEntry)
	return nil
}

// Entry returns the DataEntry for the given data type, if present.
func (m *Master) Entry(t DataType) (*DataEntry, bool) {
	e, ok := m.entries[t]
	return e, ok
}

// parserState tracks which element of a <data> block we're inside,
// mirroring the original's ParserSection enum.
type parserState int

const (
	sectionNone parserState = iota
	sectionLocation
	sectionChecksum
	sectionOpenChecksum
	sectionTimestamp
	sectionSize
	sectionOpenSize
	sectionDatabaseVersion
)

// ParseRepomd reads a repomd.xml document and returns its <data> entries
// keyed by type, validating that every entry with a location also has a
// checksum and a non-zero timestamp.
func ParseRepomd(r io.Reader) (map[DataType]*DataEntry, error) {
	dec := xml.NewDecoder(r)
	entries := make(map[DataType]*DataEntry)

	var cur *DataEntry
	var curType DataType
	var section parserState
	var checksumType string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "parsing repomd.xml"))
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "data":
				curType = DataType(attr(t, "type"))
				cur = &DataEntry{Type: curType}
			case "location":
				section = sectionLocation
				if cur != nil {
					cur.Location = attr(t, "href")
				}
			case "checksum":
				section = sectionChecksum
				checksumType = attr(t, "type")
			case "open-checksum":
				section = sectionOpenChecksum
				checksumType = attr(t, "type")
			case "timestamp":
				section = sectionTimestamp
			case "size":
				section = sectionSize
			case "open-size":
				section = sectionOpenSize
			case "database_version":
				section = sectionDatabaseVersion
			}
		case xml.CharData:
			if cur == nil {
				continue
			}
			text := string(t)
			switch section {
			case sectionChecksum:
				cur.Checksum = Checksum{Algo: checksumType, Hex: trimSpace(text)}
			case sectionOpenChecksum:
				cur.OpenChecksum = Checksum{Algo: checksumType, Hex: trimSpace(text)}
			case sectionTimestamp:
				if v, err := strconv.ParseInt(trimSpace(text), 10, 64); err == nil {
					cur.Timestamp = time.Unix(v, 0).UTC()
				}
			case sectionSize:
				if v, err := strconv.ParseUint(trimSpace(text), 10, 64); err == nil {
					cur.Size = v
				}
			case sectionOpenSize:
				if v, err := strconv.ParseUint(trimSpace(text), 10, 64); err == nil {
					cur.OpenSize = v
				}
			case sectionDatabaseVersion:
				if v, err := strconv.Atoi(trimSpace(text)); err == nil {
					cur.DatabaseVersion = v
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "data":
				if cur != nil {
					if cur.Location != "" {
						if cur.Checksum.Hex == "" {
							return nil, ziferr.New(ziferr.InvalidMetadata, errors.Errorf("repomd.xml: <data type=%q> has a location but no checksum", cur.Type))
						}
						if cur.Timestamp.IsZero() {
							return nil, ziferr.New(ziferr.InvalidMetadata, errors.Errorf("repomd.xml: <data type=%q> has a location but no timestamp", cur.Type))
						}
					}
					entries[curType] = cur
				}
				cur = nil
			case "location", "checksum", "open-checksum", "timestamp", "size", "open-size", "database_version":
				section = sectionNone
			}
		}
	}

	return entries, nil
}

func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
