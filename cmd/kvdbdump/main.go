// Package main provides a command-line utility to dump a KVDB file's
// header and hash-table tree to stdout, for debugging the on-disk format.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/scigolib/kvdb"
)

func main() {
	showValues := flag.Bool("values", false, "print each leaf value's size in bytes alongside its key")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: kvdbdump [flags] <file.kvdb>")
		fmt.Println("Flags:")
		flag.PrintDefaults()
		return
	}

	path := args[0]
	r, err := kvdb.OpenFile(path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", path, err)
	}

	fmt.Printf("%s: byte-swapped=%v size=%d bytes\n", path, r.IsByteSwapped(), len(r.Bytes()))

	root, err := r.RootTable()
	if err != nil {
		log.Fatalf("failed to read root table: %v", err)
	}

	if err := dumpTable(root, "", *showValues); err != nil {
		log.Fatalf("failed to walk table: %v", err)
	}
}

func dumpTable(t *kvdb.HashTable, indent string, showValues bool) error {
	keys, err := t.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		item, err := t.GetItem(key)
		if err != nil {
			return err
		}
		fmt.Printf("%s%-8s %s\n", indent, item.Type, key)
		switch item.Type {
		case kvdb.ItemTypeHashTable:
			sub, err := t.GetTable(key)
			if err != nil {
				return err
			}
			if err := dumpTable(sub, indent+"  ", showValues); err != nil {
				return err
			}
		case kvdb.ItemTypeValue:
			if showValues {
				b, err := t.GetValueBytes(key)
				if err != nil {
					return err
				}
				fmt.Printf("%s  %d bytes\n", indent, len(b))
			}
		}
	}
	return nil
}
