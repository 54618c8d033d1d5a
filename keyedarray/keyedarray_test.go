package keyedarray

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type pkg struct {
	name    string
	version string
}

func newPkgs() *Array[pkg] {
	return New(func(p pkg) string { return p.name })
}

func TestAddAndLookup(t *testing.T) {
	a := newPkgs()
	assert.True(t, a.Add(pkg{"bash", "5.1"}))
	assert.True(t, a.Add(pkg{"zsh", "5.9"}))
	assert.Equal(t, 2, a.Len())

	got, ok := a.LookupByKey("bash")
	assert.True(t, ok)
	assert.Equal(t, "5.1", got.version)
}

func TestAddDuplicateKeyRejected(t *testing.T) {
	a := newPkgs()
	assert.True(t, a.Add(pkg{"bash", "5.1"}))
	assert.False(t, a.Add(pkg{"bash", "5.2"}))
	assert.Equal(t, 1, a.Len())
	got, _ := a.LookupByKey("bash")
	assert.Equal(t, "5.1", got.version)
}

func TestRemovePreservesOrder(t *testing.T) {
	a := newPkgs()
	a.Add(pkg{"a", "1"})
	a.Add(pkg{"b", "1"})
	a.Add(pkg{"c", "1"})

	assert.True(t, a.RemoveByKey("b"))
	names := []string{}
	for _, p := range a.All() {
		names = append(names, p.name)
	}
	assert.Equal(t, []string{"a", "c"}, names)

	_, ok := a.LookupByKey("b")
	assert.False(t, ok)
}

func TestRemoveMissingKeyNoop(t *testing.T) {
	a := newPkgs()
	a.Add(pkg{"a", "1"})
	assert.False(t, a.RemoveByKey("missing"))
	assert.Equal(t, 1, a.Len())
}

func TestRemoveByValue(t *testing.T) {
	a := newPkgs()
	p := pkg{"a", "1"}
	a.Add(p)
	assert.True(t, a.Remove(p))
	assert.Equal(t, 0, a.Len())
}
