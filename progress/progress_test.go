package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hughsie/zif-sub003/ziferr"
)

func TestBeginDonePercent(t *testing.T) {
	n := New()
	assert.NoError(t, n.Begin([]uint32{1, 1, 2}))

	assert.NoError(t, n.Done())
	assert.InDelta(t, 25.0, n.Percent(), 0.001)

	assert.NoError(t, n.Done())
	assert.InDelta(t, 50.0, n.Percent(), 0.001)

	assert.NoError(t, n.Done())
	assert.InDelta(t, 100.0, n.Percent(), 0.001)
}

func TestDoneWithoutBeginIsProgrammingError(t *testing.T) {
	n := New()
	err := n.Done()
	assert.True(t, ziferr.Is(err, ziferr.SetupInvalid))
}

func TestDoneBeyondDeclaredStepsIsProgrammingError(t *testing.T) {
	n := New()
	assert.NoError(t, n.Begin([]uint32{1}))
	assert.NoError(t, n.Done())
	err := n.Done()
	assert.True(t, ziferr.Is(err, ziferr.SetupInvalid))
}

func TestBeginTwiceIsProgrammingError(t *testing.T) {
	n := New()
	assert.NoError(t, n.Begin([]uint32{1}))
	err := n.Begin([]uint32{1})
	assert.True(t, ziferr.Is(err, ziferr.SetupInvalid))
}

func TestChildSharesCancelToken(t *testing.T) {
	n := New()
	c := n.Child()
	assert.False(t, c.Cancelled())
	n.Cancel()
	assert.True(t, c.Cancelled())
	assert.True(t, n.Cancelled())
}

func TestCheckCancelled(t *testing.T) {
	n := New()
	assert.NoError(t, n.CheckCancelled())
	n.Cancel()
	err := n.CheckCancelled()
	assert.True(t, ziferr.Is(err, ziferr.Cancelled))
}

func TestResetAllowsReuse(t *testing.T) {
	n := New()
	assert.NoError(t, n.Begin([]uint32{1}))
	assert.NoError(t, n.Done())
	n.Reset()
	assert.NoError(t, n.Begin([]uint32{1, 1}))
	assert.NoError(t, n.Done())
	assert.InDelta(t, 50.0, n.Percent(), 0.001)
}

func TestActionStartStop(t *testing.T) {
	n := New()
	n.ActionStart(ActionDownloading, "primary.sqlite.bz2")
	kind, subject := n.Action()
	assert.Equal(t, ActionDownloading, kind)
	assert.Equal(t, "primary.sqlite.bz2", subject)
	n.ActionStop()
	kind, subject = n.Action()
	assert.Equal(t, ActionUnknown, kind)
	assert.Equal(t, "", subject)
}
