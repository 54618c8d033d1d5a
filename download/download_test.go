package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hughsie/zif-sub003/ziferr"
)

func TestDownloadWritesFileAtomically(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "repomd.xml")

	h := NewHTTP()
	require.NoError(t, h.Download(context.Background(), srv.URL, dest, nil))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	// no stray temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloadNon200IsDownloadFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	h := NewHTTP()
	err := h.Download(context.Background(), srv.URL, filepath.Join(dir, "f"), nil)
	assert.True(t, ziferr.Is(err, ziferr.DownloadFailed))
}

func TestDownloadWithVerifySucceeds(t *testing.T) {
	content := []byte("package contents")
	sum := sha256.Sum256(content)
	hexDigest := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "pkg.rpm")
	h := NewHTTP()

	err := h.DownloadWithVerify(context.Background(), srv.URL, dest, 0, nil, "sha256", hexDigest, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestDownloadWithVerifyChecksumMismatchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("wrong content"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "pkg.rpm")
	h := NewHTTP()

	err := h.DownloadWithVerify(context.Background(), srv.URL, dest, 0, nil, "sha256", strings.Repeat("0", 64), nil)
	assert.True(t, ziferr.Is(err, ziferr.DownloadFailed))

	// the mismatched file is removed rather than left behind
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadWithVerifyRejectsDisallowedContentType(t *testing.T) {
	content := []byte("content")
	sum := sha256.Sum256(content)
	hexDigest := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "f")
	h := NewHTTP()

	err := h.DownloadWithVerify(context.Background(), srv.URL, dest, 0, []string{"application/octet-stream"}, "sha256", hexDigest, nil)
	assert.True(t, ziferr.Is(err, ziferr.DownloadFailed))
}

func TestDownloadWithVerifyAllowsListedContentType(t *testing.T) {
	content := []byte("content")
	sum := sha256.Sum256(content)
	hexDigest := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "f")
	h := NewHTTP()

	err := h.DownloadWithVerify(context.Background(), srv.URL, dest, 0, []string{"application/octet-stream"}, "sha256", hexDigest, nil)
	require.NoError(t, err)
}

func TestDownloadWithVerifyEnforcesMinSize(t *testing.T) {
	content := []byte("tiny")
	sum := sha256.Sum256(content)
	hexDigest := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "f")
	h := NewHTTP()

	err := h.DownloadWithVerify(context.Background(), srv.URL, dest, 1024, nil, "sha256", hexDigest, nil)
	assert.True(t, ziferr.Is(err, ziferr.DownloadFailed))
}

func TestDownloadLocationTriesNextMirror(t *testing.T) {
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer badSrv.Close()
	goodContent := []byte("good content")
	goodSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(goodContent)
	}))
	defer goodSrv.Close()

	h := NewHTTP()
	require.NoError(t, h.AddLocation(LocationSource{
		MirrorList: strings.NewReader(badSrv.URL + "\n" + goodSrv.URL + "\n"),
	}))

	dir := t.TempDir()
	dest := filepath.Join(dir, "pkg.rpm")
	require.NoError(t, h.DownloadLocation(context.Background(), "path/to/pkg.rpm", dest, nil))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, goodContent, data)
}

func TestDownloadLocationFailsWithNoLocationsRegistered(t *testing.T) {
	h := NewHTTP()
	dir := t.TempDir()
	err := h.DownloadLocation(context.Background(), "path", filepath.Join(dir, "f"), nil)
	assert.True(t, ziferr.Is(err, ziferr.SetupInvalid))
}

func TestClearLocationsResetsSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	h := NewHTTP()
	require.NoError(t, h.AddLocation(LocationSource{MirrorList: strings.NewReader(srv.URL + "\n")}))
	h.ClearLocations()

	dir := t.TempDir()
	err := h.DownloadLocation(context.Background(), "path", filepath.Join(dir, "f"), nil)
	assert.True(t, ziferr.Is(err, ziferr.SetupInvalid))
}

func TestVerifyChecksumMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	ok, err := VerifyChecksum(filepath.Join(dir, "missing"), "sha256", "deadbeef")
	require.NoError(t, err)
	assert.False(t, ok)
}
