package bundle

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// manifestXML mirrors the top-level <gresources> element.
type manifestXML struct {
	XMLName    xml.Name       `xml:"gresources"`
	Gresources []gresourceXML `xml:"gresource"`
}

// gresourceXML mirrors one <gresource prefix="..."> element.
type gresourceXML struct {
	Prefix string    `xml:"prefix,attr"`
	Files  []fileXML `xml:"file"`
}

// fileXML mirrors one <file> leaf element.
type fileXML struct {
	Compressed string `xml:"compressed,attr"`
	Preprocess string `xml:"preprocess,attr"`
	Alias      string `xml:"alias,attr"`
	Path       string `xml:",chardata"`
}

var manifestKnownElements = map[string]map[string]bool{
	"gresources": {},
	"gresource":  {"prefix": true},
	"file":       {"compressed": true, "preprocess": true, "alias": true},
}

// parseManifest reads and validates an XML manifest at path, returning the
// FileEntry list with paths resolved relative to the manifest's directory.
func parseManifest(path string) ([]FileEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &IoError{Path: path, Cause: err}
	}

	if err := validateManifestSchema(raw); err != nil {
		return nil, &XmlError{Path: path, Cause: err}
	}

	var doc manifestXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, &XmlError{Path: path, Cause: err}
	}

	dir := filepath.Dir(path)
	var entries []FileEntry
	for _, g := range doc.Gresources {
		prefix := ensureTrailingSlash(g.Prefix)
		for _, f := range g.Files {
			filePath := strings.TrimSpace(f.Path)
			compressed, err := parseManifestBool(f.Compressed)
			if err != nil {
				return nil, &XmlError{Path: path, Cause: fmt.Errorf("file %q: %w", filePath, err)}
			}
			preprocess, err := parseManifestPreprocess(f.Preprocess)
			if err != nil {
				return nil, &XmlError{Path: path, Cause: fmt.Errorf("file %q: %w", filePath, err)}
			}
			alias := f.Alias
			if alias == "" {
				alias = filePath
			}
			key := prefix + alias

			resolved := filepath.Join(dir, filePath)
			data, err := os.ReadFile(resolved)
			if err != nil {
				return nil, &IoError{Path: resolved, Cause: err}
			}

			entries = append(entries, FileEntry{
				Key:        key,
				Path:       resolved,
				Data:       data,
				Compressed: compressed,
				Preprocess: preprocess,
			})
		}
	}
	return entries, nil
}

func ensureTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func parseManifestBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid compressed value %q", s)
	}
}

func parseManifestPreprocess(s string) ([]PreprocessOption, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	opts := make([]PreprocessOption, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch PreprocessOption(p) {
		case PreprocessXMLStripblanks, PreprocessJSONStripblanks, PreprocessToPixdata:
			opts = append(opts, PreprocessOption(p))
		default:
			return nil, fmt.Errorf("unknown preprocess option %q", p)
		}
	}
	return opts, nil
}

// validateManifestSchema re-walks the raw token stream and rejects any
// element or attribute name not in manifestKnownElements, since
// encoding/xml has no deny-unknown-fields mode of its own.
func validateManifestSchema(raw []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		attrs, known := manifestKnownElements[start.Name.Local]
		if !known {
			return fmt.Errorf("unknown element %q", start.Name.Local)
		}
		for _, a := range start.Attr {
			if !attrs[a.Name.Local] {
				return fmt.Errorf("unknown attribute %q on element %q", a.Name.Local, start.Name.Local)
			}
		}
	}
}
