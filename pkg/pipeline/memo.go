package pipeline

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultMemoSize bounds each stage's memo. Filter values come from callers,
// so an unbounded memo would grow with every distinct query string.
const DefaultMemoSize = 256

// memo caches one stage's output per input key, evicting the least recently
// used entry past its capacity. It is not safe for concurrent use; Engine
// serializes access.
type memo[V any] struct {
	values *simplelru.LRU[string, V]
	hits   int
	misses int
}

func newMemo[V any](size int) *memo[V] {
	if size <= 0 {
		size = DefaultMemoSize
	}
	values, err := simplelru.NewLRU[string, V](size, nil)
	if err != nil {
		// Only a non-positive size fails, which is ruled out above.
		panic(err)
	}
	return &memo[V]{values: values}
}

func (m *memo[V]) get(key string, compute func() V) V {
	if v, ok := m.values.Get(key); ok {
		m.hits++
		return v
	}
	m.misses++
	v := compute()
	m.values.Add(key, v)
	return v
}

func (m *memo[V]) reset() {
	m.values.Purge()
}

func (m *memo[V]) len() int {
	return m.values.Len()
}
