package repomd

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/hughsie/zif-sub003/mirror"
	"github.com/hughsie/zif-sub003/ziferr"
)

// Metalink parses a metalink XML document (as served by
// mirrors.fedoraproject.org-style endpoints) into a set of candidate
// mirror URLs, grounded on zif_repo_md_metalink_load's GMarkupParser
// state machine.
type Metalink struct {
	filename string
	loaded   bool
	urls     []mirror.URL
}

// NewMetalink returns an unloaded Metalink that will read path on Load.
func NewMetalink(path string) *Metalink {
	return &Metalink{filename: path}
}

// ID implements Metadata.
func (m *Metalink) ID() string { return "metalink" }

// Filename implements Metadata.
func (m *Metalink) Filename() string { return m.filename }

// Load implements Metadata, parsing the metalink document at m.Filename().
func (m *Metalink) Load() error {
	f, err := os.Open(m.filename)
	if err != nil {
		return ziferr.New(ziferr.NotFound, errors.Wrapf(err, "opening %s", m.filename))
	}
	defer f.Close()

	urls, err := ParseMetalink(f)
	if err != nil {
		return err
	}
	m.urls = urls
	m.loaded = true
	return nil
}

// Clean implements Metadata.
func (m *Metalink) Clean() error {
	if m.filename == "" {
		return nil
	}
	if err := os.Remove(m.filename); err != nil && !os.IsNotExist(err) {
		return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "removing %s", m.filename))
	}
	return nil
}

// Unload implements Metadata.
func (m *Metalink) Unload() error {
	m.loaded = false
	m.urls = nil
	return nil
}

// GetMirrors returns the HTTP-protocol mirror URIs with preference >=
// threshold, highest preference first, matching
// zif_repo_md_metalink_get_mirrors.
func (m *Metalink) GetMirrors(threshold int) []string {
	set := mirror.NewSet()
	set.AddMetalink(m.urls, threshold)
	var out []string
	for {
		u, ok := set.Next()
		if !ok {
			break
		}
		out = append(out, u)
	}
	return out
}

// ParseMetalink reads a metalink XML document and returns every <url>
// entry found under <resources>, regardless of protocol; callers filter
// via mirror.Set.AddMetalink or Metalink.GetMirrors.
func ParseMetalink(r io.Reader) ([]mirror.URL, error) {
	dec := xml.NewDecoder(r)
	var urls []mirror.URL
	var inResources bool
	var cur mirror.URL
	var capturing bool

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ziferr.New(ziferr.InvalidMetadata, errors.Wrap(err, "parsing metalink"))
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "resources":
				inResources = true
			case "url":
				if !inResources {
					continue
				}
				cur = mirror.URL{
					Protocol:   mirror.ProtocolFromText(attr(t, "protocol")),
					Location:   attr(t, "location"),
					Preference: parsePreference(attr(t, "preference")),
				}
				capturing = true
			}
		case xml.CharData:
			if capturing {
				cur.URI += trimSpace(string(t))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "url":
				if capturing {
					urls = append(urls, cur)
					capturing = false
				}
			case "resources":
				inResources = false
			}
		}
	}

	return urls, nil
}

func parsePreference(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
