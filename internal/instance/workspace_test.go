package instance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCanonicalWorkspacePath(t *testing.T) {
	tmpDir := t.TempDir()

	path, err := GetCanonicalWorkspacePath(context.Background(), nil, tmpDir)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(path))

	// tmpDir may itself be behind a symlink on some systems
	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	require.NoError(t, err)
	absRealTmpDir, err := filepath.Abs(realTmpDir)
	require.NoError(t, err)

	assert.Equal(t, absRealTmpDir, path)
}

func TestGetCanonicalWorkspacePath_ResolvesSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "real")
	require.NoError(t, os.Mkdir(target, 0755))

	link := filepath.Join(tmpDir, "link")
	require.NoError(t, os.Symlink(target, link))

	path, err := GetCanonicalWorkspacePath(context.Background(), nil, link)
	require.NoError(t, err)

	realTarget, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, realTarget, path)
}

func TestGetCanonicalWorkspacePath_Missing(t *testing.T) {
	_, err := GetCanonicalWorkspacePath(context.Background(), nil, "/nonexistent/workspace/path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
