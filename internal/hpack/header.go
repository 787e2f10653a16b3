package hpack

import (
	"fmt"
	"sort"
)

//go:generate go run ../../tools/staticTable -content ../../tools/staticTable/static_table.txt -out static_table.go

// entryOverhead is added to the name and value length of every table entry
// when accounting for dynamic table size.
const entryOverhead = 32

type HeaderField struct {
	HeaderFieldName  string
	HeaderFieldValue string
	NeverIndexed     bool
}

func NewHeaderField(name string, value string, neverIndexed bool) *HeaderField {
	return &HeaderField{
		HeaderFieldName:  name,
		HeaderFieldValue: value,
		NeverIndexed:     neverIndexed,
	}
}

// Size is the number of octets the field occupies in a dynamic table.
func (hf HeaderField) Size() uint32 {
	return uint32(len(hf.HeaderFieldName) + len(hf.HeaderFieldValue) + entryOverhead)
}

func (hf HeaderField) String() string {
	if hf.NeverIndexed {
		return fmt.Sprintf("%s: %s (never indexed)", hf.HeaderFieldName, hf.HeaderFieldValue)
	}
	return fmt.Sprintf("%s: %s", hf.HeaderFieldName, hf.HeaderFieldValue)
}

type tableEntry struct {
	name      string
	value     string
	nameHash  uint32
	valueHash uint32
}

func newTableEntry(name, value string) tableEntry {
	return tableEntry{
		name:      name,
		value:     value,
		nameHash:  hashString(name),
		valueHash: hashString(value),
	}
}

func (e *tableEntry) size() uint32 {
	return uint32(len(e.name) + len(e.value) + entryOverhead)
}

func (e *tableEntry) field() HeaderField {
	return HeaderField{HeaderFieldName: e.name, HeaderFieldValue: e.value}
}

// hashString is 32-bit FNV-1a.
func hashString(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// staticByHash lists static table positions ordered by name hash, then by
// position, so the first name match found is the lowest index.
var staticByHash [STATIC_TABLE_SIZE]uint8

func init() {
	for i := range staticTable {
		e := &staticTable[i]
		e.nameHash = hashString(e.name)
		e.valueHash = hashString(e.value)
		staticByHash[i] = uint8(i)
	}
	sort.SliceStable(staticByHash[:], func(a, b int) bool {
		return staticTable[staticByHash[a]].nameHash < staticTable[staticByHash[b]].nameHash
	})
}

// staticLookup returns the 1-based index of the static entry matching both
// name and value, and of the first entry matching name alone. Zero means no
// match.
func staticLookup(name, value string, nameHash, valueHash uint32) (full, nameOnly uint64) {
	i := sort.Search(len(staticByHash), func(i int) bool {
		return staticTable[staticByHash[i]].nameHash >= nameHash
	})
	for ; i < len(staticByHash); i++ {
		pos := staticByHash[i]
		e := &staticTable[pos]
		if e.nameHash != nameHash {
			break
		}
		if e.name != name {
			continue
		}
		if nameOnly == 0 {
			nameOnly = uint64(pos) + 1
		}
		if e.valueHash == valueHash && e.value == value {
			return uint64(pos) + 1, nameOnly
		}
	}
	return 0, nameOnly
}

func staticEntry(index uint64) *tableEntry {
	return &staticTable[index-1]
}

// indexedEntry resolves an index in the combined address space: 1 through
// STATIC_TABLE_SIZE name static entries, higher values name dynamic entries
// from newest to oldest.
func indexedEntry(t *DynamicTable, index uint64) (*tableEntry, error) {
	if index == 0 {
		return nil, fmt.Errorf("%w: 0", ErrInvalidIndex)
	}
	if index <= STATIC_TABLE_SIZE {
		return staticEntry(index), nil
	}
	i := index - STATIC_TABLE_SIZE - 1
	if i >= uint64(t.Len()) {
		return nil, fmt.Errorf("%w: %d beyond %d entries", ErrInvalidIndex, index, STATIC_TABLE_SIZE+t.Len())
	}
	return t.get(int(i)), nil
}
