package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExportUnzipRoundTrip(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, ".expanse.json"), `{"objects":{}}`)
	write(t, filepath.Join(root, "assets", "models", "robot.glb"), "glb-bytes")
	write(t, filepath.Join(root, "node_modules", "x", "index.js"), "skip me")
	write(t, filepath.Join(root, ".git", "HEAD"), "ref")

	out := filepath.Join(root, "export.zip")
	res, err := Export(root, out)
	require.NoError(t, err)
	assert.Equal(t, out, res.Archive)
	assert.Equal(t, 2, res.Files)
	assert.EqualValues(t, len(`{"objects":{}}`)+len("glb-bytes"), res.Bytes)

	r, err := zip.OpenReader(out)
	require.NoError(t, err)
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	r.Close()
	assert.ElementsMatch(t, []string{".expanse.json", "assets/models/robot.glb"}, names)

	dest := filepath.Join(t.TempDir(), "restored")
	ex, err := Unzip(out, dest)
	require.NoError(t, err)
	assert.Len(t, ex.Files, 2)
	assert.Empty(t, ex.Skipped)
	got, err := os.ReadFile(filepath.Join(dest, "assets", "models", "robot.glb"))
	require.NoError(t, err)
	assert.Equal(t, "glb-bytes", string(got))
}

func TestUnzip_SkipsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"../escape.txt":       "bad",
		"nested/../../up.txt": "bad",
		"ok/file.txt":         "good",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(dir, "out")
	ex, err := Unzip(zipPath, dest)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dest, "ok", "file.txt")}, ex.Files)
	assert.ElementsMatch(t, []string{"../escape.txt", "nested/../../up.txt"}, ex.Skipped)
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnzip_MissingArchive(t *testing.T) {
	_, err := Unzip(filepath.Join(t.TempDir(), "none.zip"), t.TempDir())
	assert.Error(t, err)
}
