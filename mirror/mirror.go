// Package mirror resolves the set of candidate base URIs a download may
// be retried against: plain mirror-list files and metalink documents,
// the Go translation of zif_repo_md_metalink_get_mirrors and its
// companion mirror-list handling in the original library.
package mirror

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Protocol is one of the four transport protocols the original metalink
// parser recognises. Only Http is ever selected by GetMirrors, but all
// four are kept (matching zif-repo-md-metalink.h) since a metalink
// document may list ftp/rsync entries alongside http ones.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolHTTP
	ProtocolFTP
	ProtocolRsync
)

// ProtocolFromText maps a metalink <url protocol="..."> attribute value
// to a Protocol, defaulting to ProtocolUnknown for anything unrecognised.
func ProtocolFromText(s string) Protocol {
	switch strings.ToLower(s) {
	case "http", "https":
		return ProtocolHTTP
	case "ftp":
		return ProtocolFTP
	case "rsync":
		return ProtocolRsync
	default:
		return ProtocolUnknown
	}
}

// URL is one mirror entry parsed from a metalink document.
type URL struct {
	Protocol   Protocol
	Preference int
	Location   string // a two-letter country code, or ""
	URI        string
}

// Set aggregates candidate base URIs from any number of mirror-list files
// and metalink documents, then yields them in preference order via Next.
// It is not safe for concurrent use without external synchronization.
type Set struct {
	uris []string
	pos  int
}

// NewSet returns an empty Set.
func NewSet() *Set { return &Set{} }

// AddMirrorList parses a plain-text mirror-list (one base URI per line,
// '#'-prefixed comments ignored) and appends its entries in file order.
func (s *Set) AddMirrorList(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.uris = append(s.uris, line)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "mirror: reading mirror list")
	}
	return nil
}

// AddMetalink takes the URL entries of an already-parsed metalink
// document and appends the HTTP-protocol ones with preference >=
// threshold, highest preference first, matching
// zif_repo_md_metalink_get_mirrors.
func (s *Set) AddMetalink(urls []URL, threshold int) {
	filtered := make([]URL, 0, len(urls))
	for _, u := range urls {
		if u.Protocol == ProtocolHTTP && u.Preference >= threshold {
			filtered = append(filtered, u)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Preference > filtered[j].Preference
	})
	for _, u := range filtered {
		s.uris = append(s.uris, u.URI)
	}
}

// Next returns the next candidate base URI in preference order, and
// whether one was available. Repeated calls exhaust the set; call Clear
// to start over (e.g. for a fresh top-level download after a full
// mirror-list was already exhausted by a nested one).
func (s *Set) Next() (string, bool) {
	if s.pos >= len(s.uris) {
		return "", false
	}
	uri := s.uris[s.pos]
	s.pos++
	return uri, true
}

// Clear resets iteration back to the start without discarding entries.
func (s *Set) Clear() { s.pos = 0 }

// Len returns the total number of candidate URIs currently held.
func (s *Set) Len() int { return len(s.uris) }
