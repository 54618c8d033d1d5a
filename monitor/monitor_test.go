package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchNotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "releases.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	w := NewWithInterval(10 * time.Millisecond)
	defer w.Close()

	ch, err := w.Watch(path)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))
	// ensure mtime actually advances on coarse-grained filesystems
	future := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestWatchIsIdempotentPerPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "releases.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	w := NewWithInterval(time.Hour)
	defer w.Close()

	ch1, err := w.Watch(path)
	require.NoError(t, err)
	ch2, err := w.Watch(path)
	require.NoError(t, err)
	assert.Equal(t, ch1, ch2)
}

func TestUnwatchClosesChannel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "releases.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	w := NewWithInterval(time.Hour)
	defer w.Close()

	ch, err := w.Watch(path)
	require.NoError(t, err)
	w.Unwatch(path)

	_, ok := <-ch
	assert.False(t, ok)
}
