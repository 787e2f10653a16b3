package cache

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestInternReturnsSharedString(t *testing.T) {
	in := NewInterner(8, 64)

	a := in.Intern([]byte("content-type"))
	b := in.Intern([]byte("content-type"))

	assert.Equal(t, "content-type", b)
	assert.Equal(t, unsafe.StringData(a), unsafe.StringData(b))

	hits, misses := in.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestInternSkipsLongValues(t *testing.T) {
	in := NewInterner(8, 4)

	assert.Equal(t, "abcdef", in.Intern([]byte("abcdef")))
	assert.Equal(t, 0, in.Len())
}

func TestInternResetsWhenFull(t *testing.T) {
	in := NewInterner(2, 64)

	in.Intern([]byte("a"))
	in.Intern([]byte("b"))
	assert.Equal(t, 2, in.Len())

	in.Intern([]byte("c"))
	assert.Equal(t, 1, in.Len())
}

func TestInternConcurrent(t *testing.T) {
	in := NewInterner(16, 64)
	names := []string{":method", ":path", "accept", "user-agent"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				name := names[j%len(names)]
				assert.Equal(t, name, in.Intern([]byte(name)))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(names), in.Len())
}
