package repomd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hughsie/zif-sub003/ziferr"
)

const validRepomd = `<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <data type="primary">
    <checksum type="sha256">abc123</checksum>
    <open-checksum type="sha256">def456</open-checksum>
    <location href="repodata/primary.sqlite.bz2"/>
    <timestamp>1700000000</timestamp>
    <size>1234</size>
    <open-size>5678</open-size>
  </data>
  <data type="filelists">
    <checksum type="sha256">aaa111</checksum>
    <location href="repodata/filelists.sqlite.bz2"/>
    <timestamp>1700000001</timestamp>
  </data>
</repomd>
`

const missingChecksumRepomd = `<?xml version="1.0"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <data type="primary">
    <location href="repodata/primary.sqlite.bz2"/>
    <timestamp>1700000000</timestamp>
  </data>
</repomd>
`

const missingTimestampRepomd = `<?xml version="1.0"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <data type="primary">
    <checksum type="sha256">abc123</checksum>
    <location href="repodata/primary.sqlite.bz2"/>
  </data>
</repomd>
`

func TestParseRepomdValid(t *testing.T) {
	entries, err := ParseRepomd(strings.NewReader(validRepomd))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	primary, ok := entries[DataTypePrimary]
	require.True(t, ok)
	assert.Equal(t, "repodata/primary.sqlite.bz2", primary.Location)
	assert.Equal(t, "sha256", primary.Checksum.Algo)
	assert.Equal(t, "abc123", primary.Checksum.Hex)
	assert.Equal(t, "def456", primary.OpenChecksum.Hex)
	assert.EqualValues(t, 1234, primary.Size)
	assert.EqualValues(t, 5678, primary.OpenSize)
	assert.False(t, primary.Timestamp.IsZero())
}

func TestParseRepomdMissingChecksumIsInvalid(t *testing.T) {
	_, err := ParseRepomd(strings.NewReader(missingChecksumRepomd))
	assert.True(t, ziferr.Is(err, ziferr.InvalidMetadata))
}

func TestParseRepomdMissingTimestampIsInvalid(t *testing.T) {
	_, err := ParseRepomd(strings.NewReader(missingTimestampRepomd))
	assert.True(t, ziferr.Is(err, ziferr.InvalidMetadata))
}

func TestMasterLoadAndClean(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repomd.xml")
	require.NoError(t, os.WriteFile(path, []byte(validRepomd), 0644))

	m := NewMaster(path)
	require.NoError(t, m.Load())

	entry, ok := m.Entry(DataTypeFilelists)
	require.True(t, ok)
	assert.Equal(t, "repodata/filelists.sqlite.bz2", entry.Location)

	require.NoError(t, m.Clean())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestMasterLoadMissingFile(t *testing.T) {
	m := NewMaster("/nonexistent/repomd.xml")
	err := m.Load()
	assert.True(t, ziferr.Is(err, ziferr.NotFound))
}
