package release

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hughsie/zif-sub003/monitor"
)

const sampleReleasesTxt = `[39]
version = 39
preupgrade-ok = true
stable = true
baseurl = https://dl.example/releases/39/Everything/$basearch/os
mirrorlist = https://mirrors.example/mirrorlist?repo=39

[40]
version = 40
preupgrade-ok = true
stable = false
baseurl = https://dl.example/releases/40/Everything/$basearch/os

[38]
version = 38
preupgrade-ok = false
stable = true
baseurl = https://dl.example/releases/38/Everything/$basearch/os
`

func writeReleasesTxt(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "releases.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleReleasesTxt), 0644))
	return path
}

func TestCatalogLoadOrdersByVersionAndSkipsDisabled(t *testing.T) {
	c := NewCatalog(writeReleasesTxt(t))
	require.NoError(t, c.Load())

	all := c.All()
	require.Len(t, all, 2)
	assert.EqualValues(t, 39, all[0].Version)
	assert.EqualValues(t, 40, all[1].Version)
}

func TestCatalogGet(t *testing.T) {
	c := NewCatalog(writeReleasesTxt(t))
	require.NoError(t, c.Load())

	u, ok := c.Get(39)
	require.True(t, ok)
	assert.True(t, u.Stable)

	_, ok = c.Get(38)
	assert.False(t, ok, "disabled release must not be returned by Get")
}

func TestCatalogNewerThanInstalled(t *testing.T) {
	c := NewCatalog(writeReleasesTxt(t))
	require.NoError(t, c.Load())

	newer := c.NewerThanInstalled(39)
	require.Len(t, newer, 1)
	assert.EqualValues(t, 40, newer[0].Version)
}

func TestCatalogStablest(t *testing.T) {
	c := NewCatalog(writeReleasesTxt(t))
	require.NoError(t, c.Load())

	u, ok := c.Stablest()
	require.True(t, ok)
	assert.EqualValues(t, 39, u.Version)
}

func TestCatalogRefreshOnChange(t *testing.T) {
	path := writeReleasesTxt(t)
	c := NewCatalog(path)
	require.NoError(t, c.Load())

	w := monitor.NewWithInterval(10 * time.Millisecond)
	defer w.Close()
	require.NoError(t, c.WatchForChanges(w))

	assert.False(t, c.Stale())

	future := time.Now().Add(time.Second)
	require.NoError(t, os.WriteFile(path, []byte(sampleReleasesTxt+"\n[41]\nversion=41\npreupgrade-ok=true\n"), 0644))
	require.NoError(t, os.Chtimes(path, future, future))

	require.Eventually(t, c.Stale, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, c.Refresh())

	_, ok := c.Get(41)
	assert.True(t, ok)
}
