package transformers

import (
	"reflect"
	"runtime"
	"sync"
	"weak"
)

// componentTable holds the results produced for a single source instance.
// A nil value is the "no result" marker.
type componentTable struct {
	mu      sync.Mutex
	entries map[reflect.Type]any
}

func newComponentTable() *componentTable {
	return &componentTable{entries: make(map[reflect.Type]any)}
}

func (t *componentTable) get(target reflect.Type) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	value, ok := t.entries[target]
	return value, ok
}

func (t *componentTable) put(target reflect.Type, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[target] = value
}

// componentHolder is implemented by types embedding Composable.
type componentHolder interface {
	components() *componentTable
}

// identity is a source instance: its address plus its dynamic type. A struct
// and its first field share an address but are distinct instances.
type identity struct {
	typ reflect.Type
	ptr weak.Pointer[byte]
}

// instanceCache maps source instances to their component tables. Tables of
// pointer sources live in an identity table keyed by weak pointers and are
// evicted once the source is collected; Composable sources carry their own.
//
// Results are held strongly for as long as their source lives. A result that
// references its own source keeps the source reachable from the identity
// table, so such sources never get evicted; sources of that kind should
// embed Composable, whose table is collected together with the source.
type instanceCache struct {
	tables sync.Map // identity -> *componentTable
}

// lookup returns the table for instance, creating it when create is set.
// It returns nil for instances without identity (non-pointer values).
func (c *instanceCache) lookup(instance any, create bool) *componentTable {
	if holder, ok := instance.(componentHolder); ok {
		return holder.components()
	}

	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Type().Elem().Size() == 0 {
		return nil
	}

	ptr := (*byte)(rv.UnsafePointer())
	key := identity{typ: rv.Type(), ptr: weak.Make(ptr)}
	if table, ok := c.tables.Load(key); ok {
		return table.(*componentTable)
	}
	if !create {
		return nil
	}

	table, loaded := c.tables.LoadOrStore(key, newComponentTable())
	if !loaded {
		runtime.AddCleanup(ptr, c.evict, key)
	}
	return table.(*componentTable)
}

func (c *instanceCache) evict(key identity) {
	c.tables.Delete(key)
}

// size reports the number of identity tables currently held.
func (c *instanceCache) size() int {
	n := 0
	c.tables.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
