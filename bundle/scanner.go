package bundle

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

var scannerSkipSuffixes = []string{
	"meson.build",
	"gresource.xml",
	".gitignore",
	".license",
}

func skipScannerFile(name string) bool {
	for _, suf := range scannerSkipSuffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

// scanDirectory walks dir recursively in deterministic order and returns a
// FileEntry per file found, with compression/preprocessing routed by
// extension and keys rooted at prefix.
func scanDirectory(prefix, dir string, stripBlanks, compress bool) ([]FileEntry, error) {
	prefix = ensureTrailingSlash(prefix)

	var rels []string
	if err := walkSorted(dir, "", &rels); err != nil {
		return nil, err
	}

	entries := make([]FileEntry, 0, len(rels))
	for _, rel := range rels {
		if !utf8.ValidString(rel) {
			return nil, &Utf8Error{Path: rel}
		}
		base := filepath.Base(rel)
		if skipScannerFile(base) {
			continue
		}

		full := filepath.Join(dir, rel)
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, &IoError{Path: full, Cause: err}
		}

		key := prefix + filepath.ToSlash(rel)
		ext := strings.ToLower(filepath.Ext(base))

		compressed := compress && (ext == ".ui" || ext == ".css")

		var preprocess []PreprocessOption
		switch {
		case stripBlanks && ext == ".json":
			preprocess = []PreprocessOption{PreprocessJSONStripblanks}
		case stripBlanks && ext == ".xml":
			preprocess = []PreprocessOption{PreprocessXMLStripblanks}
		case ext == ".ui" || ext == ".svg":
			preprocess = []PreprocessOption{PreprocessXMLStripblanks}
		}

		entries = append(entries, FileEntry{
			Key:        key,
			Path:       full,
			Data:       data,
			Compressed: compressed,
			Preprocess: preprocess,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// walkSorted recursively appends relative file paths under root+rel to out,
// visiting siblings in sorted order at every level for reproducibility.
func walkSorted(root, rel string, out *[]string) error {
	dirents, err := os.ReadDir(filepath.Join(root, rel))
	if err != nil {
		return &IoError{Path: filepath.Join(root, rel), Cause: err}
	}
	sort.Slice(dirents, func(i, j int) bool { return dirents[i].Name() < dirents[j].Name() })

	for _, d := range dirents {
		childRel := filepath.Join(rel, d.Name())
		if d.IsDir() {
			if err := walkSorted(root, childRel, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, childRel)
	}
	return nil
}
