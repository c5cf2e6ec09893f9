package bundle

import (
	"encoding/binary"

	"github.com/scigolib/kvdb"
)

// pathSeparator is the container-inference separator used for every
// bundle, matching the format's conventional resource-path layout.
const pathSeparator = "/"

// Bundle is a resolved set of file entries ready to be lowered into a
// KVDB byte image.
type Bundle struct {
	entries []FileEntry
}

// FromEntries builds a Bundle directly from an explicit entry list.
func FromEntries(entries []FileEntry) (*Bundle, error) {
	return &Bundle{entries: entries}, nil
}

// FromManifest builds a Bundle by parsing an XML manifest file.
func FromManifest(path string) (*Bundle, error) {
	entries, err := parseManifest(path)
	if err != nil {
		return nil, err
	}
	return &Bundle{entries: entries}, nil
}

// FromDirectory builds a Bundle by recursively scanning a directory tree.
func FromDirectory(prefix, dir string, stripBlanks, compress bool) (*Bundle, error) {
	entries, err := scanDirectory(prefix, dir, stripBlanks, compress)
	if err != nil {
		return nil, err
	}
	return &Bundle{entries: entries}, nil
}

// Build runs every entry through the file-entry pipeline, inserts the
// resulting leaf values into a KVDB builder, and emits the final byte
// image in the given byte order.
func (bn *Bundle) Build(order binary.ByteOrder) ([]byte, error) {
	b := kvdb.NewBuilder(pathSeparator)
	for i := range bn.entries {
		fe := bn.entries[i]
		value, err := fe.toValue()
		if err != nil {
			return nil, err
		}
		if err := b.Insert(fe.Key, value); err != nil {
			return nil, &BuilderError{Cause: err}
		}
	}
	w := kvdb.NewWriter(order)
	out, err := w.Emit(b)
	if err != nil {
		return nil, &BuilderError{Cause: err}
	}
	return out, nil
}

// Len reports how many file entries the bundle holds.
func (bn *Bundle) Len() int {
	return len(bn.entries)
}
