// Package download defines the Downloader capability consumed by the
// mirror resolver, release catalog and upgrade engine, plus an HTTP
// implementation with mirror-aware retries, Content-Type allowlisting and
// checksum verification. Checksums are parsed structurally as
// "algo:hexdigest" (see internal/toolexec.SplitChecksum) rather than
// assuming a fixed SHA-256 prefix length, correcting the original's
// pk_release_checksum_matches_file "+7" byte-offset bug.
package download

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hughsie/zif-sub003/mirror"
	"github.com/hughsie/zif-sub003/progress"
	"github.com/hughsie/zif-sub003/ziferr"
)

var log = logrus.WithField("pkg", "download")

// LocationSource registers a set of candidate mirrors with a Downloader's
// location list, either a plain mirror-list document or an
// already-parsed metalink URL set. Exactly one of MirrorList or Metalink
// should be populated.
type LocationSource struct {
	MirrorList io.Reader
	Metalink   []mirror.URL
	Threshold  int
}

// Downloader is the external capability the rest of this module consumes
// to fetch remote content, matching the required capability set: fetch a
// literal URI, fetch-and-verify a literal URI, and fetch a relative path
// against a registered, mutable set of candidate mirrors.
type Downloader interface {
	// Download fetches uri into destPath, reporting progress on node if
	// non-nil. It does not verify content; callers needing integrity
	// checking use DownloadWithVerify.
	Download(ctx context.Context, uri, destPath string, node *progress.Node) error

	// DownloadWithVerify fetches uri into destPath, checking the response
	// Content-Type is in contentTypes (if non-empty), that the resulting
	// file is at least minSize bytes (if non-zero), and that it hashes to
	// hex under algo. It fails with DownloadFailed on a Content-Type or
	// checksum mismatch, or a transport failure.
	DownloadWithVerify(ctx context.Context, uri, destPath string, minSize int64, contentTypes []string, algo, hex string, node *progress.Node) error

	// DownloadLocation fetches relPath resolved against the currently
	// registered locations, trying each in turn on failure, with no
	// content verification.
	DownloadLocation(ctx context.Context, relPath, destPath string, node *progress.Node) error

	// AddLocation registers a mirror source as a candidate location list.
	AddLocation(source LocationSource) error

	// ClearLocations discards every registered location.
	ClearLocations()
}

// HTTP is the production Downloader: a net/http.Client that streams to a
// temp file in destPath's directory and renames into place on success, so
// a crash mid-download never leaves a corrupt file at the final path.
type HTTP struct {
	Client *http.Client

	mu        sync.Mutex
	locations *mirror.Set
}

// NewHTTP returns an HTTP downloader with a default client.
func NewHTTP() *HTTP {
	return &HTTP{Client: &http.Client{}}
}

func (h *HTTP) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

// Download implements Downloader.
func (h *HTTP) Download(ctx context.Context, uri, destPath string, node *progress.Node) error {
	if node != nil {
		node.ActionStart(progress.ActionDownloading, filepath.Base(destPath))
		defer node.ActionStop()
	}

	resp, err := h.get(ctx, uri)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return writeAtomically(destPath, resp.Body)
}

func (h *HTTP) get(ctx context.Context, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, ziferr.New(ziferr.DownloadFailed, errors.Wrapf(err, "building request for %s", uri))
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return nil, ziferr.New(ziferr.DownloadFailed, errors.Wrapf(err, "fetching %s", uri))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, ziferr.New(ziferr.DownloadFailed, errors.Errorf("fetching %s: status %d", uri, resp.StatusCode))
	}
	return resp, nil
}

// DownloadWithVerify implements Downloader against a single literal URI:
// no mirror fallback happens here, that is DownloadLocation's or the
// caller's job when it iterates its own candidate set.
func (h *HTTP) DownloadWithVerify(ctx context.Context, uri, destPath string, minSize int64, contentTypes []string, algo, hex string, node *progress.Node) error {
	if node != nil {
		node.ActionStart(progress.ActionDownloading, filepath.Base(destPath))
		defer node.ActionStop()
	}

	resp, err := h.get(ctx, uri)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if len(contentTypes) > 0 {
		ct := resp.Header.Get("Content-Type")
		if !contentTypeAllowed(ct, contentTypes) {
			return ziferr.New(ziferr.DownloadFailed, errors.Errorf("fetching %s: content-type %q not in allowed list %v", uri, ct, contentTypes))
		}
	}

	if err := writeAtomically(destPath, resp.Body); err != nil {
		return err
	}

	if minSize > 0 {
		info, err := os.Stat(destPath)
		if err != nil {
			return ziferr.New(ziferr.DownloadFailed, errors.Wrapf(err, "stat %s", destPath))
		}
		if info.Size() < minSize {
			_ = os.Remove(destPath)
			return ziferr.New(ziferr.DownloadFailed, errors.Errorf("fetching %s: size %d below minimum %d", uri, info.Size(), minSize))
		}
	}

	ok, err := VerifyChecksum(destPath, algo, hex)
	if err != nil {
		return ziferr.New(ziferr.DownloadFailed, errors.Wrapf(err, "verifying %s", destPath))
	}
	if !ok {
		_ = os.Remove(destPath)
		return ziferr.New(ziferr.DownloadFailed, errors.Errorf("checksum mismatch for %s", uri))
	}
	return nil
}

func contentTypeAllowed(ct string, allowed []string) bool {
	for _, a := range allowed {
		if a == ct {
			return true
		}
	}
	return false
}

// AddLocation implements Downloader.
func (h *HTTP) AddLocation(source LocationSource) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.locations == nil {
		h.locations = mirror.NewSet()
	}
	if source.MirrorList != nil {
		return h.locations.AddMirrorList(source.MirrorList)
	}
	h.locations.AddMetalink(source.Metalink, source.Threshold)
	return nil
}

// ClearLocations implements Downloader.
func (h *HTTP) ClearLocations() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.locations = nil
}

// DownloadLocation implements Downloader, trying each registered mirror
// in preference order until relPath downloads successfully.
func (h *HTTP) DownloadLocation(ctx context.Context, relPath, destPath string, node *progress.Node) error {
	h.mu.Lock()
	set := h.locations
	h.mu.Unlock()
	if set == nil || set.Len() == 0 {
		return ziferr.New(ziferr.SetupInvalid, errors.New("download: no locations registered"))
	}
	set.Clear()

	var lastErr error
	for {
		base, ok := set.Next()
		if !ok {
			if lastErr != nil {
				return lastErr
			}
			return ziferr.New(ziferr.DownloadFailed, errors.Errorf("no mirror available for %s", relPath))
		}
		uri := base + "/" + relPath
		if err := h.Download(ctx, uri, destPath, node); err != nil {
			log.WithError(err).WithField("uri", uri).Warn("download failed, trying next mirror")
			lastErr = err
			continue
		}
		return nil
	}
}

func writeAtomically(destPath string, r io.Reader) error {
	dir := filepath.Dir(destPath)
	tmp, err := os.CreateTemp(dir, ".zif-download-*")
	if err != nil {
		return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "creating temp file in %s", dir))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "writing %s", tmpPath))
	}
	if err := tmp.Close(); err != nil {
		return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "closing %s", tmpPath))
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return ziferr.New(ziferr.WriteFailed, errors.Wrapf(err, "renaming %s to %s", tmpPath, destPath))
	}
	return nil
}

// VerifyChecksum reports whether the file at path hashes to wantHex under
// algo (one of "md5", "sha1", "sha256"). Exported so callers that manage
// their own staged files (the upgrade engine's checkpoint/resume check)
// can reuse the same hashing logic as DownloadWithVerify.
func VerifyChecksum(path, algo, wantHex string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	var h hash.Hash
	switch algo {
	case "md5":
		h = md5.New()
	case "sha1":
		h = sha1.New()
	case "sha256":
		h = sha256.New()
	default:
		return false, errors.Errorf("unsupported checksum algorithm %q", algo)
	}

	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(h.Sum(nil)) == wantHex, nil
}
