/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

// Package xfrutil holds small helpers shared across the transfer and
// apply pipeline that don't belong on any single exported type.
package xfrutil

// GrowList is an amortized-doubling scratch buffer: append-only, with a
// zero-value that starts at zero capacity and whose first growth sets
// capacity to exactly the requested delta rather than some fixed
// starting size. Append's first growth is to capacity 1, doubling after
// that; Reserve sizes the first growth to a caller-given count. In this
// module it backs the remove/add sections of a Changeset and the
// changeset sequence of a ChangesetList, which grow record by record
// across a transfer session.
type GrowList[T any] struct {
	items []T
}

func (g *GrowList[T]) Append(v T) {
	if cap(g.items) == len(g.items) {
		g.grow(1)
	}
	g.items = append(g.items, v)
}

// Reserve ensures at least n additional elements can be appended
// without a further allocation, growing capacity by exactly n the
// first time (from a zero-value GrowList) and doubling thereafter.
func (g *GrowList[T]) Reserve(n int) {
	if cap(g.items)-len(g.items) >= n {
		return
	}
	g.grow(n)
}

func (g *GrowList[T]) grow(minDelta int) {
	cur := cap(g.items)
	target := cur * 2
	if target < cur+minDelta {
		target = cur + minDelta
	}
	if cur == 0 {
		target = minDelta
	}
	next := make([]T, len(g.items), target)
	copy(next, g.items)
	g.items = next
}

func (g *GrowList[T]) Items() []T { return g.items }
func (g *GrowList[T]) Len() int   { return len(g.items) }
func (g *GrowList[T]) Cap() int   { return cap(g.items) }
