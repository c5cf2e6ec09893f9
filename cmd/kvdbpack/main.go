// Package main provides a command-line utility to build a KVDB bundle
// from an XML manifest or a directory tree.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/scigolib/kvdb/bundle"
)

func main() {
	manifest := flag.String("manifest", "", "path to an XML resource manifest")
	dir := flag.String("dir", "", "directory to scan instead of a manifest")
	prefix := flag.String("prefix", "/", "key prefix for --dir mode")
	stripBlanks := flag.Bool("strip-blanks", true, "strip whitespace from .xml/.json files (.ui/.svg files are stripped regardless)")
	compress := flag.Bool("compress", true, "compress .ui/.css files")
	output := flag.String("output", "out.kvdb", "output file path")
	bigEndian := flag.Bool("big-endian", false, "emit a big-endian file")
	flag.Parse()

	sessionID := uuid.New().String()

	if (*manifest == "") == (*dir == "") {
		log.Fatalf("[%s] exactly one of --manifest or --dir must be set", sessionID)
	}

	var b *bundle.Bundle
	var err error
	if *manifest != "" {
		b, err = bundle.FromManifest(*manifest)
	} else {
		b, err = bundle.FromDirectory(*prefix, *dir, *stripBlanks, *compress)
	}
	if err != nil {
		log.Fatalf("[%s] failed to collect entries: %v", sessionID, err)
	}

	order := binary.ByteOrder(binary.LittleEndian)
	if *bigEndian {
		order = binary.BigEndian
	}

	data, err := b.Build(order)
	if err != nil {
		log.Fatalf("[%s] failed to build bundle: %v", sessionID, err)
	}

	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("[%s] failed to write %s: %v", sessionID, *output, err)
	}

	fmt.Printf("[%s] wrote %d entries, %d bytes, to %s\n", sessionID, b.Len(), len(data), *output)
}
