package media

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollectDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.jpg"), "bbb")
	writeFile(t, filepath.Join(dir, "a.png"), "a")
	writeFile(t, filepath.Join(dir, "notes.txt"), "skip me")
	writeFile(t, filepath.Join(dir, "sub", "c.JPEG"), "cc")

	c, err := Collect(context.Background(), []string{dir})
	require.NoError(t, err)
	defer c.Close()

	var names []string
	for _, f := range c.Files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.png", "b.jpg", "c.JPEG"}, names)
	assert.Equal(t, 1, c.Skipped)

	assert.Equal(t, "image/jpeg", c.Files[1].ContentType)
	assert.Equal(t, int64(3), c.Files[1].Size)

	data, err := c.Files[2].ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "cc", string(data))
}

func TestCollectZipArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "survey.zip")

	out, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("day1/photo.jpg")
	require.NoError(t, err)
	_, err = w.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	c, err := Collect(context.Background(), []string{archive})
	require.NoError(t, err)
	defer c.Close()

	require.Len(t, c.Files, 1)
	assert.Equal(t, "photo.jpg", c.Files[0].Name)

	data, err := c.Files[0].ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
}

func TestCollectGlobAndSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.jpg"), "1")
	writeFile(t, filepath.Join(dir, "two.jpg"), "2")
	writeFile(t, filepath.Join(dir, "three.gif"), "3")

	c, err := Collect(context.Background(), []string{
		filepath.Join(dir, "*.jpg"),
		filepath.Join(dir, "three.gif"),
	})
	require.NoError(t, err)
	defer c.Close()

	require.Len(t, c.Files, 3)
	assert.Equal(t, "one.jpg", c.Files[0].Name)
	assert.Equal(t, "two.jpg", c.Files[1].Name)
	assert.Equal(t, "three.gif", c.Files[2].Name)
}

func TestCollectMissingPath(t *testing.T) {
	_, err := Collect(context.Background(), []string{filepath.Join(t.TempDir(), "nope.jpg")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path does not exist")
}

func TestCollectCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, []string{dir})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileWithoutBackingFS(t *testing.T) {
	var f File
	_, err := f.Open()
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", DetectContentType("IMG_0001.JPG"))
	assert.Equal(t, "image/heic", DetectContentType("x.heic"))
	assert.Equal(t, "application/octet-stream", DetectContentType("blob.unknownext"))
	assert.True(t, IsImageFile("a.TIF"))
	assert.False(t, IsImageFile("a.mp4"))
}
