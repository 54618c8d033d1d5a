package repomd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertFileAbsent(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
