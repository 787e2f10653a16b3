package hpack

const minRingCapacity = 16

// DynamicTable is the size-bounded FIFO of recently used header fields.
// Entry 0 is the most recently inserted one. Entries live in a ring whose
// capacity is always a power of two; growing the ring copies entries into
// a larger one without changing their relative indices.
type DynamicTable struct {
	ring    []tableEntry
	head    int // slot of the oldest entry
	count   int
	size    uint32
	maxSize uint32

	// evicted is called with each entry removed by eviction.
	evicted func(HeaderField)
}

func NewDynamicTable(maxSize uint32) *DynamicTable {
	return &DynamicTable{maxSize: maxSize}
}

func (t *DynamicTable) Len() int {
	return t.count
}

// Size is the number of octets currently accounted to entries.
func (t *DynamicTable) Size() uint32 {
	return t.size
}

func (t *DynamicTable) MaxSize() uint32 {
	return t.maxSize
}

// SetMaxSize changes the size bound, evicting the oldest entries until the
// table fits.
func (t *DynamicTable) SetMaxSize(maxSize uint32) {
	t.maxSize = maxSize
	t.evictTo(maxSize)
}

// Insert adds a field as the newest entry. A field larger than the whole
// table empties it and is not kept.
func (t *DynamicTable) Insert(name, value string) {
	t.insert(newTableEntry(name, value))
}

func (t *DynamicTable) insert(e tableEntry) {
	room := e.size()
	if room > t.maxSize {
		t.evictTo(0)
		return
	}
	t.evictTo(t.maxSize - room)

	if t.count == len(t.ring) {
		t.grow()
	}
	t.ring[(t.head+t.count)&(len(t.ring)-1)] = e
	t.count++
	t.size += room
}

// Entry returns a copy of the entry at relative index i.
func (t *DynamicTable) Entry(i int) HeaderField {
	return t.get(i).field()
}

// Entries returns copies of all entries, newest first.
func (t *DynamicTable) Entries() []HeaderField {
	fields := make([]HeaderField, t.count)
	for i := range fields {
		fields[i] = t.get(i).field()
	}
	return fields
}

func (t *DynamicTable) get(i int) *tableEntry {
	if i < 0 || i >= t.count {
		panic("hpack: dynamic table index out of range")
	}
	return &t.ring[(t.head+t.count-1-i)&(len(t.ring)-1)]
}

// search returns the relative index of the newest entry matching name and
// value, and of the newest entry matching name alone, or -1.
func (t *DynamicTable) search(name, value string, nameHash, valueHash uint32) (full, nameOnly int) {
	nameOnly = -1
	for i := 0; i < t.count; i++ {
		e := t.get(i)
		if e.nameHash != nameHash || e.name != name {
			continue
		}
		if nameOnly < 0 {
			nameOnly = i
		}
		if e.valueHash == valueHash && e.value == value {
			return i, nameOnly
		}
	}
	return -1, nameOnly
}

func (t *DynamicTable) evictTo(limit uint32) {
	for t.size > limit && t.count > 0 {
		e := &t.ring[t.head]
		t.size -= e.size()
		if t.evicted != nil {
			t.evicted(e.field())
		}
		*e = tableEntry{}
		t.head = (t.head + 1) & (len(t.ring) - 1)
		t.count--
	}
}

func (t *DynamicTable) grow() {
	capacity := len(t.ring) * 2
	if capacity < minRingCapacity {
		capacity = minRingCapacity
	}
	ring := make([]tableEntry, capacity)
	for i := 0; i < t.count; i++ {
		ring[i] = t.ring[(t.head+i)&(len(t.ring)-1)]
	}
	t.ring = ring
	t.head = 0
}
