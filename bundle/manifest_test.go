package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeManifestFixture(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.ui"), []byte("<ui> <label/> </ui>"), 0o644))

	manifest := `<?xml version="1.0" encoding="UTF-8"?>
<gresources>
  <gresource prefix="/gvdb/rs/test">
    <file compressed="true">style.css</file>
    <file preprocess="xml-stripblanks" alias="widget.ui">data.ui</file>
  </gresource>
</gresources>`
	path := filepath.Join(dir, "manifest.xml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	return path
}

func TestParseManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifestFixture(t, dir)

	entries, err := parseManifest(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byKey := make(map[string]FileEntry)
	for _, e := range entries {
		byKey[e.Key] = e
	}

	css, ok := byKey["/gvdb/rs/test/style.css"]
	require.True(t, ok)
	require.True(t, css.Compressed)
	require.Equal(t, []byte("body{}"), css.Data)

	ui, ok := byKey["/gvdb/rs/test/widget.ui"]
	require.True(t, ok)
	require.False(t, ui.Compressed)
	require.Equal(t, []PreprocessOption{PreprocessXMLStripblanks}, ui.Preprocess)
}

func TestParseManifestRejectsUnknownAttribute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	manifest := `<gresources>
  <gresource prefix="/x">
    <file bogus="1">a.txt</file>
  </gresource>
</gresources>`
	path := filepath.Join(dir, "manifest.xml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	_, err := parseManifest(path)
	require.Error(t, err)
	var xmlErr *XmlError
	require.ErrorAs(t, err, &xmlErr)
}

func TestParseManifestRejectsInvalidCompressedValue(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	manifest := `<gresources>
  <gresource prefix="/x">
    <file compressed="maybe">a.txt</file>
  </gresource>
</gresources>`
	path := filepath.Join(dir, "manifest.xml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	_, err := parseManifest(path)
	require.Error(t, err)
}

func TestParseManifestBool(t *testing.T) {
	cases := map[string]bool{"true": true, "T": true, "yes": true, "y": true, "1": true,
		"false": false, "F": false, "no": false, "n": false, "0": false, "": false}
	for in, want := range cases {
		got, err := parseManifestBool(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := parseManifestBool("maybe")
	require.Error(t, err)
}
