package bundle

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"unicode/utf8"

	"github.com/scigolib/kvdb"
)

// PreprocessOption names a preprocessing step applied to a file's bytes
// before it is packed into the bundle.
type PreprocessOption string

const (
	PreprocessXMLStripblanks  PreprocessOption = "xml-stripblanks"
	PreprocessJSONStripblanks PreprocessOption = "json-stripblanks"
	PreprocessToPixdata       PreprocessOption = "to-pixdata"
)

// valueTupleSignature is the fixed leaf schema every bundle entry is
// packed as: (uncompressed size, compression flags, payload bytes).
const valueTupleSignature = "uuay"

// compressedFlag marks a leaf value's data as zlib-compressed.
const compressedFlag = 1

// FileEntry is one file destined for a bundle: its logical key, its raw
// bytes, and the preprocessing/compression options to apply.
type FileEntry struct {
	Key        string
	Path       string // optional, used only for error context
	Data       []byte
	Compressed bool
	Preprocess []PreprocessOption
}

func (fe *FileEntry) hasPreprocess(opt PreprocessOption) bool {
	for _, p := range fe.Preprocess {
		if p == opt {
			return true
		}
	}
	return false
}

// toValue runs the file-entry preprocessing pipeline and returns the leaf
// Value to insert into the builder: (size, flags, data).
func (fe *FileEntry) toValue() (kvdb.Value, error) {
	data := fe.Data

	if fe.hasPreprocess(PreprocessToPixdata) {
		return kvdb.Value{}, fmt.Errorf("%w: to-pixdata preprocessing is retired", ErrUnimplemented)
	}

	if fe.hasPreprocess(PreprocessXMLStripblanks) {
		if !utf8.Valid(data) {
			return kvdb.Value{}, &Utf8Error{Path: fe.Path, Cause: fmt.Errorf("invalid utf-8 in xml content")}
		}
		stripped, err := xmlStripblanks(data)
		if err != nil {
			return kvdb.Value{}, &XmlError{Path: fe.Path, Cause: err}
		}
		data = stripped
	}

	if fe.hasPreprocess(PreprocessJSONStripblanks) {
		stripped, err := jsonStripblanks(data)
		if err != nil {
			return kvdb.Value{}, &JsonError{Path: fe.Path, Cause: err}
		}
		data = stripped
	}

	size := uint32(len(data))
	flags := uint32(0)

	if fe.Compressed {
		compressed, err := compressBest(data)
		if err != nil {
			return kvdb.Value{}, &IoError{Path: fe.Path, Cause: err}
		}
		data = compressed
		flags |= compressedFlag
	} else {
		padded := make([]byte, len(data)+1)
		copy(padded, data)
		data = padded
	}

	return kvdb.NewValue(valueTupleSignature, size, flags, data), nil
}

// compressBest zlib-deflates data at the maximum compression level.
func compressBest(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
