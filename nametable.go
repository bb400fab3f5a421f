/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// nameEntry is the interned, reference-counted storage for a single owner
// name. A name's lifetime is the longest holder: every node that owns the
// name bumps the refcount on insertion and drops it on removal.
type nameEntry struct {
	name Name
	refs int32
}

// NameTable interns owner names once per zone, grounded on the teacher's
// OwnerIndex cmap.ConcurrentMap[string,int] (tdns/structs.go,
// tdns/dnsutils.go ComputeIndices) generalized into a refcounted handle
// type instead of a plain index map.
type NameTable struct {
	entries cmap.ConcurrentMap[string, *nameEntry]
}

func NewNameTable() *NameTable {
	return &NameTable{entries: cmap.New[*nameEntry]()}
}

// Intern returns the canonical Name for s, creating and bumping its
// refcount, or bumping the refcount of an already-interned entry.
func (t *NameTable) Intern(s string) Name {
	n := NewName(s)
	t.entries.Upsert(n.Key(), nil, func(exists bool, cur *nameEntry, _ *nameEntry) *nameEntry {
		if exists {
			cur.refs++
			return cur
		}
		return &nameEntry{name: n, refs: 1}
	})
	return n
}

// Release drops a reference to name; once refs reaches zero the entry is
// removed from the table. Release on a name with no outstanding
// references is a no-op (defensive against double-release during
// rollback cleanup).
func (t *NameTable) Release(name Name) {
	e, ok := t.entries.Get(name.Key())
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		t.entries.Remove(name.Key())
	}
}

// RefCount returns the current reference count for name, or 0 if not
// interned.
func (t *NameTable) RefCount(name Name) int32 {
	e, ok := t.entries.Get(name.Key())
	if !ok {
		return 0
	}
	return e.refs
}

// ShallowCopy duplicates the table's buckets (a new map with the same
// *nameEntry pointers); it does not bump refcounts, mirroring
// ZoneContents.shallow_copy's "buckets still point to the same
// underlying [names]" contract (spec.md 4.1).
func (t *NameTable) ShallowCopy() *NameTable {
	n := NewNameTable()
	for k, v := range t.entries.Items() {
		n.entries.Set(k, v)
	}
	return n
}

func (t *NameTable) Count() int { return t.entries.Count() }
