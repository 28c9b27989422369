package capabilities

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Has(HandleSolibs))

	r.Add(HandleSolibs)
	assert.True(t, r.Has(HandleSolibs))

	r.Remove(HandleSolibs)
	assert.False(t, r.Has(HandleSolibs))

	// Removing twice is harmless.
	r.Remove(HandleSolibs)
	assert.Empty(t, r.List())
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry("b", "a")
	r.Add("c")

	assert.Equal(t, []string{"a", "b", "c"}, r.List())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Add(HandleSolibs)
		}()
		go func() {
			defer wg.Done()
			_ = r.Has(HandleSolibs)
		}()
	}
	wg.Wait()

	assert.True(t, r.Has(HandleSolibs))
}

func TestDefault_IsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
