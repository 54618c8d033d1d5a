package diskspace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hughsie/zif-sub003/ziferr"
)

func TestAvailableOnRealPath(t *testing.T) {
	avail, err := Available(".")
	assert.NoError(t, err)
	assert.Greater(t, avail, uint64(0))
}

func TestRequireAvailableTooMuch(t *testing.T) {
	err := RequireAvailable(".", ^uint64(0))
	assert.True(t, ziferr.Is(err, ziferr.LowDiskSpace))
}

func TestRequireAvailableSatisfied(t *testing.T) {
	err := RequireAvailable(".", 1)
	assert.NoError(t, err)
}
