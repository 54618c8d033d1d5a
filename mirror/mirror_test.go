package mirror

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMirrorListSkipsCommentsAndBlanks(t *testing.T) {
	s := NewSet()
	err := s.AddMirrorList(strings.NewReader("# comment\n\nhttp://mirror1/path\nhttp://mirror2/path\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	uri, ok := s.Next()
	assert.True(t, ok)
	assert.Equal(t, "http://mirror1/path", uri)
}

func TestAddMetalinkFiltersProtocolAndThreshold(t *testing.T) {
	s := NewSet()
	s.AddMetalink([]URL{
		{Protocol: ProtocolHTTP, Preference: 90, URI: "http://fast/path"},
		{Protocol: ProtocolFTP, Preference: 100, URI: "ftp://ignored/path"},
		{Protocol: ProtocolHTTP, Preference: 10, URI: "http://slow/path"},
		{Protocol: ProtocolHTTP, Preference: 60, URI: "http://medium/path"},
	}, 50)

	var got []string
	for {
		uri, ok := s.Next()
		if !ok {
			break
		}
		got = append(got, uri)
	}
	assert.Equal(t, []string{"http://fast/path", "http://medium/path"}, got)
}

func TestNextExhaustsAndClearResets(t *testing.T) {
	s := NewSet()
	s.AddMetalink([]URL{{Protocol: ProtocolHTTP, Preference: 100, URI: "http://a"}}, 0)

	_, ok := s.Next()
	assert.True(t, ok)
	_, ok = s.Next()
	assert.False(t, ok)

	s.Clear()
	_, ok = s.Next()
	assert.True(t, ok)
}

func TestProtocolFromText(t *testing.T) {
	assert.Equal(t, ProtocolHTTP, ProtocolFromText("http"))
	assert.Equal(t, ProtocolHTTP, ProtocolFromText("HTTPS"))
	assert.Equal(t, ProtocolFTP, ProtocolFromText("ftp"))
	assert.Equal(t, ProtocolRsync, ProtocolFromText("rsync"))
	assert.Equal(t, ProtocolUnknown, ProtocolFromText("gopher"))
}
