package lifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestInstallFileFresh(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	target := filepath.Join(dir, "deep", "nested", "target")
	write(t, src, "content")

	action, err := installFile(src, target)
	require.NoError(t, err)
	assert.Equal(t, actionCopied, action)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestInstallFileIdenticalIsNoop(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	target := filepath.Join(dir, "target")
	write(t, src, "same")
	write(t, target, "same")

	action, err := installFile(src, target)
	require.NoError(t, err)
	assert.Equal(t, actionNoop, action)

	_, statErr := os.Stat(target + ".backup")
	assert.True(t, os.IsNotExist(statErr), "identical content must not produce a backup")
}

func TestInstallFileBacksUpDifferingTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	target := filepath.Join(dir, "target")
	write(t, src, "new")
	write(t, target, "old")

	action, err := installFile(src, target)
	require.NoError(t, err)
	assert.Equal(t, actionBackedUp, action)

	backup, err := os.ReadFile(target + ".backup")
	require.NoError(t, err)
	assert.Equal(t, "old", string(backup))
}

func TestBackupPathAvoidsClobbering(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	write(t, target+".backup", "earlier backup")

	path := backupPath(target)
	assert.NotEqual(t, target+".backup", path)
	assert.Contains(t, path, ".backup.")
}

func TestInstallFilePreservesSourceMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	target := filepath.Join(dir, "target")
	write(t, src, "#!/bin/sh\n")
	require.NoError(t, os.Chmod(src, 0755))

	_, err := installFile(src, target)
	require.NoError(t, err)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestFilesIdentical(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	write(t, a, "x")
	write(t, b, "x")
	write(t, c, "y")

	same, err := filesIdentical(a, b)
	require.NoError(t, err)
	assert.True(t, same)

	same, err = filesIdentical(a, c)
	require.NoError(t, err)
	assert.False(t, same)
}
