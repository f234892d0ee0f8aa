package sstable

import (
	"testing"

	"tierdb/pkg/compaction"
)

func addTables(r *Registry, n int) []*SSTable {
	tables := make([]*SSTable, n)
	for i := range tables {
		id := r.NextID()
		tables[i] = New(id, "", 1000, 100)
		r.Add(tables[i])
	}
	return tables
}

func TestRegistryAddGet(t *testing.T) {
	r := NewRegistry()
	tables := addTables(r, 3)

	if r.Len() != 3 {
		t.Fatalf("expected 3 live tables, got %d", r.Len())
	}

	got, ok := r.Get(tables[1].ID())
	if !ok || got != tables[1] {
		t.Fatalf("Get returned wrong table")
	}

	r.Remove(tables[1].ID())
	if _, ok := r.Get(tables[1].ID()); ok {
		t.Fatal("expected table to be removed")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 live tables after removal, got %d", r.Len())
	}
}

func TestRegistrySnapshotExcludesClaimed(t *testing.T) {
	r := NewRegistry()
	tables := addTables(r, 4)

	if got := len(r.Snapshot()); got != 4 {
		t.Fatalf("expected snapshot of 4 tables, got %d", got)
	}

	claim := []compaction.Table{tables[0], tables[1]}
	if !r.Claim(claim) {
		t.Fatal("expected claim to succeed")
	}

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected snapshot of 2 unclaimed tables, got %d", len(snap))
	}
	for _, st := range snap {
		id := st.(*SSTable).ID()
		if id == tables[0].ID() || id == tables[1].ID() {
			t.Fatalf("claimed table %d leaked into snapshot", id)
		}
	}
}

func TestRegistryClaimConflict(t *testing.T) {
	r := NewRegistry()
	tables := addTables(r, 3)

	if !r.Claim([]compaction.Table{tables[0]}) {
		t.Fatal("first claim should succeed")
	}

	// overlapping claim must fail and leave the rest unclaimed
	if r.Claim([]compaction.Table{tables[1], tables[0]}) {
		t.Fatal("overlapping claim should fail")
	}
	if len(r.Snapshot()) != 2 {
		t.Fatalf("failed claim must roll back, snapshot has %d tables", len(r.Snapshot()))
	}

	r.Release([]compaction.Table{tables[0]})
	if len(r.Snapshot()) != 3 {
		t.Fatal("expected all tables unclaimed after release")
	}
}

func TestRegistryClaimRemovedTable(t *testing.T) {
	r := NewRegistry()
	tables := addTables(r, 2)

	r.Remove(tables[0].ID())
	if r.Claim([]compaction.Table{tables[0]}) {
		t.Fatal("claiming a removed table should fail")
	}
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()
	tables := addTables(r, 3)

	inputs := []compaction.Table{tables[0], tables[1]}
	if !r.Claim(inputs) {
		t.Fatal("claim failed")
	}

	merged := New(r.NextID(), "merged.sst", 2000, 200)
	r.Replace(inputs, []*SSTable{merged})
	r.Release(inputs)

	if r.Len() != 2 {
		t.Fatalf("expected 2 live tables after replace, got %d", r.Len())
	}
	if _, ok := r.Get(merged.ID()); !ok {
		t.Fatal("merged table missing from registry")
	}
	if _, ok := r.Get(tables[0].ID()); ok {
		t.Fatal("compacted input still live")
	}
	if len(r.Snapshot()) != 2 {
		t.Fatalf("expected snapshot of 2 after replace, got %d", len(r.Snapshot()))
	}
}

func TestSSTableMarkRead(t *testing.T) {
	table := New(1, "t.sst", 1000, 0)

	if table.EstimatedKeys() != 1 {
		t.Fatalf("estimated keys must be clamped to 1, got %d", table.EstimatedKeys())
	}
	if table.ReadMeter() != nil {
		t.Fatal("fresh table should have no read meter")
	}

	table.MarkRead(5)
	m := table.ReadMeter()
	if m == nil {
		t.Fatal("meter should exist after first read")
	}
	if m.Count() != 5 {
		t.Fatalf("expected 5 recorded reads, got %d", m.Count())
	}
}

func TestRestoreKeepsRates(t *testing.T) {
	table := Restore(7, "t.sst", 1000, 100, 10, 20)

	m := table.ReadMeter()
	if m == nil {
		t.Fatal("restored table should carry a meter")
	}
	if m.TwoHourRate() != 20 {
		t.Fatalf("expected restored two-hour rate 20, got %f", m.TwoHourRate())
	}
}
