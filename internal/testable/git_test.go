package testable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealRepoDetector(t *testing.T) {
	repo := t.TempDir()
	_, err := git.PlainInit(repo, false)
	require.NoError(t, err)
	sub := filepath.Join(repo, "pkg", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	inside, err := RealRepoDetector{}.InsideWorkTree(sub)
	require.NoError(t, err)
	assert.True(t, inside)

	inside, err = RealRepoDetector{}.InsideWorkTree(t.TempDir())
	require.NoError(t, err)
	assert.False(t, inside)
}

func TestStaticRepoDetector(t *testing.T) {
	inside, err := StaticRepoDetector{Inside: true}.InsideWorkTree("/anywhere")
	require.NoError(t, err)
	assert.True(t, inside)
}
