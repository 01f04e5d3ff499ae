package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "image_0000.jpg")
	require.NoError(t, os.WriteFile(file, []byte{0xFF, 0xD8}, 0644))

	exists, isDir, err := CheckDirectory(dir)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, isDir)

	exists, isDir, err = CheckDirectory(file)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.False(t, isDir)

	for _, missing := range []string{filepath.Join(dir, "nonexistent"), ""} {
		exists, isDir, err = CheckDirectory(missing)
		require.NoError(t, err)
		assert.False(t, exists, "%q", missing)
		assert.False(t, isDir, "%q", missing)
	}
}

func TestEnsureDirectory(t *testing.T) {
	dir := t.TempDir()

	nested := filepath.Join(dir, "received_images", "cam1")
	require.NoError(t, EnsureDirectory(nested))
	exists, isDir, err := CheckDirectory(nested)
	require.NoError(t, err)
	assert.True(t, exists && isDir)

	assert.NoError(t, EnsureDirectory(dir), "existing directory is fine")

	file := filepath.Join(dir, "not_a_dir")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, EnsureDirectory(file))
}
