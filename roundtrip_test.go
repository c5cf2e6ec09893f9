package kvdb

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario A: flat single-entry file.
func TestScenarioA_FlatSingleEntry(t *testing.T) {
	b := NewBuilder("")
	require.NoError(t, b.Insert("root_key", NewValue("uus", uint32(1234), uint32(98765), "TEST_STRING_VALUE")))

	data, err := NewWriter(binary.LittleEndian).Emit(b)
	require.NoError(t, err)

	r, err := Open(data)
	require.NoError(t, err)
	root, err := r.RootTable()
	require.NoError(t, err)

	values, err := root.GetValue("root_key", "uus")
	require.NoError(t, err)
	require.Equal(t, []any{uint32(1234), uint32(98765), "TEST_STRING_VALUE"}, values)
}

// Scenario B: nested table.
func TestScenarioB_NestedTable(t *testing.T) {
	sub := NewBuilder("")
	require.NoError(t, sub.Insert("int", NewValue("u", uint32(42))))

	b := NewBuilder("")
	require.NoError(t, b.Insert("string", NewValue("s", "test string")))
	require.NoError(t, b.InsertTable("table", sub))

	data, err := NewWriter(binary.LittleEndian).Emit(b)
	require.NoError(t, err)

	r, err := Open(data)
	require.NoError(t, err)
	root, err := r.RootTable()
	require.NoError(t, err)

	keys, err := root.Keys()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"string", "table"}, keys)

	sv, err := root.GetValue("string", "s")
	require.NoError(t, err)
	require.Equal(t, []any{"test string"}, sv)

	nested, err := root.GetTable("table")
	require.NoError(t, err)
	iv, err := nested.GetValue("int", "u")
	require.NoError(t, err)
	require.Equal(t, []any{uint32(42)}, iv)
}

// Scenario C: hierarchical container keys.
func TestScenarioC_HierarchicalContainers(t *testing.T) {
	b := NewBuilder("/")
	require.NoError(t, b.Insert("/gvdb/rs/test/test.css", NewValue("s", "body{}")))

	data, err := NewWriter(binary.LittleEndian).Emit(b)
	require.NoError(t, err)

	r, err := Open(data)
	require.NoError(t, err)
	root, err := r.RootTable()
	require.NoError(t, err)

	keys, err := root.Keys()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		"/", "/gvdb/", "/gvdb/rs/", "/gvdb/rs/test/", "/gvdb/rs/test/test.css",
	}, keys)

	for _, containerKey := range []string{"/", "/gvdb/", "/gvdb/rs/", "/gvdb/rs/test/"} {
		item, err := root.GetItem(containerKey)
		require.NoError(t, err)
		require.Equal(t, ItemTypeContainer, item.Type)
	}

	leaf, err := root.GetItem("/gvdb/rs/test/test.css")
	require.NoError(t, err)
	require.Equal(t, ItemTypeValue, leaf.Type)
}

// Container child indices are always little-endian, even when the rest of
// the table's multi-byte fields are written big-endian.
func TestScenarioC_ContainersSurviveBigEndian(t *testing.T) {
	b := NewBuilder("/")
	require.NoError(t, b.Insert("/gvdb/rs/test/test.css", NewValue("s", "body{}")))
	require.NoError(t, b.Insert("/gvdb/rs/test/other.css", NewValue("s", "div{}")))

	data, err := NewWriter(binary.BigEndian).Emit(b)
	require.NoError(t, err)

	r, err := Open(data)
	require.NoError(t, err)
	require.True(t, r.IsByteSwapped())
	root, err := r.RootTable()
	require.NoError(t, err)

	keys, err := root.Keys()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		"/", "/gvdb/", "/gvdb/rs/", "/gvdb/rs/test/",
		"/gvdb/rs/test/test.css", "/gvdb/rs/test/other.css",
	}, keys)

	for _, containerKey := range []string{"/", "/gvdb/", "/gvdb/rs/", "/gvdb/rs/test/"} {
		item, err := root.GetItem(containerKey)
		require.NoError(t, err)
		require.Equal(t, ItemTypeContainer, item.Type)
	}

	sv, err := root.GetValue("/gvdb/rs/test/test.css", "s")
	require.NoError(t, err)
	require.Equal(t, []any{"body{}"}, sv)
}

// Endianness-independence: a value written big-endian and read back must
// decode identically to one written little-endian.
func TestEndiannessIndependence(t *testing.T) {
	build := func() *Builder {
		b := NewBuilder("")
		require.NoError(t, b.Insert("k", NewValue("u", uint32(0xdeadbeef))))
		return b
	}

	leData, err := NewWriter(binary.LittleEndian).Emit(build())
	require.NoError(t, err)
	beData, err := NewWriter(binary.BigEndian).Emit(build())
	require.NoError(t, err)
	require.NotEqual(t, leData, beData)

	leReader, err := Open(leData)
	require.NoError(t, err)
	beReader, err := Open(beData)
	require.NoError(t, err)

	leRoot, err := leReader.RootTable()
	require.NoError(t, err)
	beRoot, err := beReader.RootTable()
	require.NoError(t, err)

	leVal, err := leRoot.GetValue("k", "u")
	require.NoError(t, err)
	beVal, err := beRoot.GetValue("k", "u")
	require.NoError(t, err)
	require.Equal(t, leVal, beVal)
}

// Reproducibility: emitting the same builder contents twice, built via
// different insertion orders, yields byte-identical output.
func TestReproducibility(t *testing.T) {
	b1 := NewBuilder("/")
	require.NoError(t, b1.Insert("/a/b", NewValue("u", uint32(1))))
	require.NoError(t, b1.Insert("/a/c", NewValue("u", uint32(2))))
	require.NoError(t, b1.Insert("/z", NewValue("u", uint32(3))))

	b2 := NewBuilder("/")
	require.NoError(t, b2.Insert("/z", NewValue("u", uint32(3))))
	require.NoError(t, b2.Insert("/a/c", NewValue("u", uint32(2))))
	require.NoError(t, b2.Insert("/a/b", NewValue("u", uint32(1))))

	d1, err := NewWriter(binary.LittleEndian).Emit(b1)
	require.NoError(t, err)
	d2, err := NewWriter(binary.LittleEndian).Emit(b2)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

// KeyNotFound is a normal value, not a data fault.
func TestGetItemKeyNotFound(t *testing.T) {
	b := NewBuilder("")
	require.NoError(t, b.Insert("present", NewValue("u", uint32(1))))
	data, err := NewWriter(binary.LittleEndian).Emit(b)
	require.NoError(t, err)

	r, err := Open(data)
	require.NoError(t, err)
	root, err := r.RootTable()
	require.NoError(t, err)

	_, err = root.GetItem("absent")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

// Scenario F: parent loop detection during key enumeration.
func TestScenarioF_ParentLoopDetected(t *testing.T) {
	// Hand-craft two items that reference each other as parents: a
	// two-item, single-bucket table where item 0's parent is item 1 and
	// item 1's parent is item 0.
	const nBuckets = 1
	const nItems = 2
	tableSize := hashTableHeaderSize + nBuckets*4 + nItems*itemSize
	table := make([]byte, tableSize)
	order := binary.LittleEndian
	order.PutUint32(table[0:4], 0) // n_bloom_words=0
	order.PutUint32(table[4:8], nBuckets)
	order.PutUint32(table[8:12], 0) // bucket 0 starts at item 0

	itemsOff := hashTableHeaderSize + nBuckets*4
	// item 0: parent = item 1, suffix "x" stored right after table.
	keyAreaStart := uint32(headerSize + tableSize)
	it0 := Item{HashValue: hashKey("x"), Parent: 1, KeyStart: keyAreaStart, KeySize: 1, Type: ItemTypeValue, Value: NullPointer}
	it0.encode(table[itemsOff:itemsOff+itemSize], order)
	it1 := Item{HashValue: hashKey("y"), Parent: 0, KeyStart: keyAreaStart + 1, KeySize: 1, Type: ItemTypeValue, Value: NullPointer}
	it1.encode(table[itemsOff+itemSize:itemsOff+2*itemSize], order)

	full := make([]byte, headerSize+tableSize+2)
	writeHeader(full[0:headerSize], false, Pointer{Start: headerSize, End: uint32(headerSize + tableSize)})
	copy(full[headerSize:headerSize+tableSize], table)
	full[keyAreaStart] = 'x'
	full[keyAreaStart+1] = 'y'

	r, err := Open(full)
	require.NoError(t, err)
	root, err := r.RootTable()
	require.NoError(t, err)

	_, err = root.Keys()
	require.Error(t, err)
}
