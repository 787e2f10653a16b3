package hpack

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticLookupEveryEntry(t *testing.T) {
	for i := range staticTable {
		e := &staticTable[i]
		full, nameOnly := staticLookup(e.name, e.value, hashString(e.name), hashString(e.value))
		assert.Equal(t, uint64(i+1), full, "%s: %s", e.name, e.value)
		assert.NotZero(t, nameOnly)
		assert.LessOrEqual(t, nameOnly, full)
	}
}

func TestStaticLookupNameOnly(t *testing.T) {
	tests := []struct {
		name, value string
		nameIndex   uint64
	}{
		{":method", "PUT", 2},
		{":status", "418", 8},
		{"accept", "*/*", 19},
		{"www-authenticate", "Basic", 61},
		{"x-unknown", "", 0},
	}

	for _, tt := range tests {
		full, nameOnly := staticLookup(tt.name, tt.value, hashString(tt.name), hashString(tt.value))
		assert.Zero(t, full)
		assert.Equal(t, tt.nameIndex, nameOnly, tt.name)
	}
}

func TestIndexedEntry(t *testing.T) {
	table := NewDynamicTable(4096)
	table.Insert("custom-key", "custom-header")

	e, err := indexedEntry(table, 2)
	require.NoError(t, err)
	assert.Equal(t, HeaderField{HeaderFieldName: ":method", HeaderFieldValue: "GET"}, e.field())

	e, err = indexedEntry(table, STATIC_TABLE_SIZE+1)
	require.NoError(t, err)
	assert.Equal(t, "custom-key", e.name)

	_, err = indexedEntry(table, 0)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	_, err = indexedEntry(table, STATIC_TABLE_SIZE+2)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestDynamicTableEvictsOldestFirst(t *testing.T) {
	// Each entry is 1 + 1 + 32 = 34 octets; three fit in 110.
	table := NewDynamicTable(110)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		table.Insert(name, "v")
		assert.LessOrEqual(t, table.Size(), table.MaxSize())
	}

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, uint32(102), table.Size())
	assert.Equal(t, []HeaderField{
		{HeaderFieldName: "e", HeaderFieldValue: "v"},
		{HeaderFieldName: "d", HeaderFieldValue: "v"},
		{HeaderFieldName: "c", HeaderFieldValue: "v"},
	}, table.Entries())
}

func TestDynamicTableOversizedEntryEmptiesTable(t *testing.T) {
	table := NewDynamicTable(64)
	table.Insert("a", "b")
	require.Equal(t, 1, table.Len())

	table.Insert("much-too-long-name", "and an even longer value")
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, uint32(0), table.Size())
}

func TestDynamicTableSetMaxSize(t *testing.T) {
	table := NewDynamicTable(4096)
	for i := 0; i < 10; i++ {
		table.Insert(fmt.Sprintf("name-%d", i), "value")
	}
	require.Equal(t, 10, table.Len())

	table.SetMaxSize(100)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "name-9", table.Entry(0).HeaderFieldName)
	assert.Equal(t, "name-8", table.Entry(1).HeaderFieldName)

	table.SetMaxSize(4096)
	assert.Equal(t, 2, table.Len())

	table.SetMaxSize(0)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, uint32(0), table.Size())
}

func TestDynamicTableGrowKeepsOrder(t *testing.T) {
	table := NewDynamicTable(1 << 20)

	// Wrap the ring before it has to grow.
	table.SetMaxSize(5 * 43)
	for i := 0; i < 40; i++ {
		table.Insert(fmt.Sprintf("name-%02d", i), "v")
	}
	table.SetMaxSize(1 << 20)
	for i := 40; i < 200; i++ {
		table.Insert(fmt.Sprintf("name-%02d", i), "v")
	}

	require.Equal(t, 165, table.Len())
	for i := 0; i < table.Len(); i++ {
		assert.Equal(t, fmt.Sprintf("name-%02d", 199-i), table.Entry(i).HeaderFieldName)
	}
}

func TestDynamicTableSearch(t *testing.T) {
	table := NewDynamicTable(4096)
	table.Insert("x-trace", "1")
	table.Insert("x-trace", "2")
	table.Insert("x-other", "2")

	full, nameOnly := table.search("x-trace", "1", hashString("x-trace"), hashString("1"))
	assert.Equal(t, 2, full)
	assert.Equal(t, 1, nameOnly)

	full, nameOnly = table.search("x-trace", "3", hashString("x-trace"), hashString("3"))
	assert.Equal(t, -1, full)
	assert.Equal(t, 1, nameOnly)

	full, nameOnly = table.search("x-none", "1", hashString("x-none"), hashString("1"))
	assert.Equal(t, -1, full)
	assert.Equal(t, -1, nameOnly)
}
