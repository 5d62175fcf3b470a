package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func setupTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.PNG"))
	touch(t, filepath.Join(dir, "a.jpg"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "nested", "c.tiff"))
	touch(t, filepath.Join(dir, "nested", "deeper", "d.webp"))
	touch(t, filepath.Join(dir, "nested", "readme.md"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.jpg"), 0o755))
	return dir
}

func TestSupportedImages_TopLevel(t *testing.T) {
	dir := setupTree(t)

	paths, err := SupportedImages(dir, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.PNG"),
	}, paths)
}

func TestSupportedImages_Recursive(t *testing.T) {
	dir := setupTree(t)

	paths, err := SupportedImages(dir, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.PNG"),
		filepath.Join(dir, "nested", "c.tiff"),
		filepath.Join(dir, "nested", "deeper", "d.webp"),
	}, paths)
}

func TestSupportedImages_EmptyCatalog(t *testing.T) {
	dir := setupTree(t)

	paths, err := SupportedImages(dir, true, imaging.NewFormatCatalog(nil))
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestSupportedImages_Missing(t *testing.T) {
	_, err := SupportedImages(filepath.Join(t.TempDir(), "missing"), false, nil)
	assert.True(t, errors.Is(err, imaging.ErrNotFound), "got %v", err)
}

func TestSupportedImages_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.jpg")
	touch(t, file)

	_, err := SupportedImages(file, false, nil)
	assert.True(t, errors.Is(err, imaging.ErrArgument), "got %v", err)
}
