package ziferr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessageWithAndWithoutCause(t *testing.T) {
	bare := Sentinel(LowDiskSpace)
	assert.Equal(t, "low disk space", bare.Error())

	wrapped := New(NotFound, errors.New("repomd.xml missing"))
	assert.Equal(t, "not found: repomd.xml missing", wrapped.Error())
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(SpawnFailed, cause)
	assert.Equal(t, cause, errors.Cause(err))
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := errors.Wrap(New(Cancelled, nil), "UpgradeTo")
	assert.True(t, Is(err, Cancelled))
	assert.False(t, Is(err, DownloadFailed))
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), NotFound))
	assert.False(t, Is(nil, NotFound))
}

func TestErrorIsSatisfiesStdlibErrorsIs(t *testing.T) {
	err := New(LowDiskSpace, errors.New("boot dir full"))
	assert.True(t, errors.Is(err, Sentinel(LowDiskSpace)))
	assert.False(t, errors.Is(err, Sentinel(NotFound)))
}

func TestLowDiskSpaceDetailError(t *testing.T) {
	d := &LowDiskSpaceDetail{Path: "/boot", Required: 100, Available: 10}
	assert.Equal(t, "/boot: need 100 bytes free, have 10", d.Error())
}

func TestKindStringUnknownDefault(t *testing.T) {
	assert.Equal(t, "unknown", Kind(999).String())
}
