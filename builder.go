package kvdb

import (
	"sort"
	"strings"
)

// entryKind tags what a builderItem holds.
type entryKind int

const (
	kindValue entryKind = iota
	kindHashTable
	kindContainer
)

// builderItem is one node in a Builder's key space: a leaf Value, a nested
// Builder, or an inferred container whose children are listed by key.
type builderItem struct {
	key      string
	hash     uint32
	kind     entryKind
	value    Value
	subtable *Builder
	children []string // container child keys, sorted at build time

	parentKey string // "" for root-level items
	assigned  uint32 // not set by Writer.Emit, which keeps indices in resolvedItem.assignedIndex
}

// Builder accumulates (key -> value|table) associations and, when a path
// separator is set, infers Container nodes for hierarchical key prefixes.
// A Builder is exclusively owned by the goroutine assembling it and is
// consumed by Writer.Emit.
type Builder struct {
	separator string
	items     map[string]*builderItem
	order     []string // insertion order; not read by emission, which sorts keys
}

// NewBuilder creates a Builder. pathSeparator controls container
// inference; an empty string disables it. Passing "/" matches the
// format's conventional default.
func NewBuilder(pathSeparator string) *Builder {
	return &Builder{
		separator: pathSeparator,
		items:     make(map[string]*builderItem),
	}
}

func (b *Builder) ensureContainers(key string) error {
	if b.separator == "" {
		return nil
	}
	idx := 0
	for {
		i := strings.Index(key[idx:], b.separator)
		if i < 0 {
			return nil
		}
		prefixEnd := idx + i + len(b.separator)
		prefix := key[:prefixEnd]
		if prefix == key {
			return nil
		}
		existing, ok := b.items[prefix]
		if !ok {
			b.items[prefix] = &builderItem{
				key:  prefix,
				hash: hashKey(prefix),
				kind: kindContainer,
			}
			b.order = append(b.order, prefix)
			if err := b.linkIntoParentContainer(prefix); err != nil {
				return err
			}
		} else if existing.kind != kindContainer {
			return newConsistencyError("key " + prefix + " already exists and is not a container")
		}
		idx = prefixEnd
	}
}

// Insert adds a leaf value at key.
func (b *Builder) Insert(key string, value Value) error {
	if err := b.ensureContainers(key); err != nil {
		return err
	}
	if _, exists := b.items[key]; !exists {
		b.order = append(b.order, key)
	}
	b.items[key] = &builderItem{
		key:   key,
		hash:  hashKey(key),
		kind:  kindValue,
		value: value,
	}
	return b.linkIntoParentContainer(key)
}

// InsertTable adds a nested table at key.
func (b *Builder) InsertTable(key string, sub *Builder) error {
	if err := b.ensureContainers(key); err != nil {
		return err
	}
	if _, exists := b.items[key]; !exists {
		b.order = append(b.order, key)
	}
	b.items[key] = &builderItem{
		key:      key,
		hash:     hashKey(key),
		kind:     kindHashTable,
		subtable: sub,
	}
	return b.linkIntoParentContainer(key)
}

// linkIntoParentContainer records key as a child of the nearest enclosing
// container implied by the path separator, if any.
func (b *Builder) linkIntoParentContainer(key string) error {
	if b.separator == "" {
		return nil
	}
	trimmed := key
	if strings.HasSuffix(key, b.separator) {
		trimmed = key[:len(key)-len(b.separator)]
	}
	last := strings.LastIndex(trimmed, b.separator)
	if last < 0 {
		return nil
	}
	parentKey := key[:last+len(b.separator)]
	if parentKey == key {
		return nil
	}
	parent, ok := b.items[parentKey]
	if !ok || parent.kind != kindContainer {
		return nil
	}
	if child, ok := b.items[key]; ok {
		child.parentKey = parentKey
	}
	for _, c := range parent.children {
		if c == key {
			return nil
		}
	}
	parent.children = append(parent.children, key)
	return nil
}

// Remove deletes key from the builder, if present, and drops it from its
// enclosing container's child list.
func (b *Builder) Remove(key string) {
	if it, ok := b.items[key]; ok && it.parentKey != "" {
		if parent, ok := b.items[it.parentKey]; ok {
			for i, c := range parent.children {
				if c == key {
					parent.children = append(parent.children[:i], parent.children[i+1:]...)
					break
				}
			}
		}
	}
	delete(b.items, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// keys returns every key currently in the builder, sorted lexicographically
// for reproducible emission.
func (b *Builder) keys() []string {
	keys := make([]string, 0, len(b.items))
	for k := range b.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
