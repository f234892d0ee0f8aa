package sstable

import (
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"
	"github.com/zhangyunhao116/skipset"

	"tierdb/pkg/compaction"
)

// Registry tracks the live tables of one store and which of them are
// claimed by an in-flight compaction. Reads, flushes and the
// compaction loop all touch it concurrently, so both indexes are
// lock-free skip structures.
type Registry struct {
	tables  *skipmap.FuncMap[uint64, *SSTable]
	claimed *skipset.Uint64Set
	nextID  atomic.Uint64
}

func NewRegistry() *Registry {
	return &Registry{
		tables: skipmap.NewFunc[uint64, *SSTable](func(a, b uint64) bool {
			return a < b
		}),
		claimed: skipset.NewUint64(),
	}
}

// NextID hands out monotonically increasing table IDs.
func (r *Registry) NextID() uint64 {
	return r.nextID.Add(1)
}

// Add registers a live table.
func (r *Registry) Add(t *SSTable) {
	r.tables.Store(t.ID(), t)
}

// Remove drops a table and any claim on it.
func (r *Registry) Remove(id uint64) {
	r.tables.Delete(id)
	r.claimed.Remove(id)
}

// Get returns the live table with the given ID.
func (r *Registry) Get(id uint64) (*SSTable, bool) {
	return r.tables.Load(id)
}

// Len returns the number of live tables.
func (r *Registry) Len() int {
	return r.tables.Len()
}

// All returns every live table in ID order, claimed or not.
func (r *Registry) All() []*SSTable {
	out := make([]*SSTable, 0, r.tables.Len())
	r.tables.Range(func(_ uint64, t *SSTable) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Snapshot returns the live tables not claimed by a running
// compaction. This is the consistent view the strategy evaluates.
func (r *Registry) Snapshot() []compaction.Table {
	out := make([]compaction.Table, 0, r.tables.Len())
	r.tables.Range(func(id uint64, t *SSTable) bool {
		if !r.claimed.Contains(id) {
			out = append(out, t)
		}
		return true
	})
	return out
}

// Claim marks the given tables as being compacted. If any table is
// already claimed, was removed, or is not one of ours, nothing is
// claimed and Claim returns false.
func (r *Registry) Claim(tables []compaction.Table) bool {
	taken := make([]uint64, 0, len(tables))

	rollback := func() {
		for _, id := range taken {
			r.claimed.Remove(id)
		}
	}

	for _, t := range tables {
		st, ok := t.(*SSTable)
		if !ok {
			rollback()
			return false
		}
		if _, live := r.tables.Load(st.ID()); !live {
			rollback()
			return false
		}
		if !r.claimed.Add(st.ID()) {
			rollback()
			return false
		}
		taken = append(taken, st.ID())
	}

	return true
}

// Release drops claims on the given tables.
func (r *Registry) Release(tables []compaction.Table) {
	for _, t := range tables {
		if st, ok := t.(*SSTable); ok {
			r.claimed.Remove(st.ID())
		}
	}
}

// Replace atomically-enough swaps compacted inputs for their merged
// outputs: outputs become visible before the inputs disappear, so a
// concurrent snapshot never observes the data missing entirely.
func (r *Registry) Replace(inputs []compaction.Table, outputs []*SSTable) {
	for _, t := range outputs {
		r.Add(t)
	}
	for _, t := range inputs {
		if st, ok := t.(*SSTable); ok {
			r.Remove(st.ID())
		}
	}
}
