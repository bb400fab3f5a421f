/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

// nodeIndex is a stable handle into a zone's node arena, standing in for
// the original implementation's embedded C struct pointers (new_node,
// parent, prev, next in libknot's zone node). Using an arena index
// instead of a Go pointer means a shallow-copied zone can carry its own
// private remapping of "same logical node, new generation" without
// aliasing the previous generation's node objects.
type nodeIndex int32

const nilNode nodeIndex = -1

// nodeFlags records per-node bookkeeping the applicator needs during and
// after a changeset apply.
type nodeFlags uint8

const (
	flagNew           nodeFlags = 1 << iota // created by the in-progress apply, eligible for full rollback-delete
	flagOld                                 // carried over unmodified from the previous generation
	flagEmptyNonTerm                        // materialized only to connect the tree, no RRsets of its own
	flagRemovedMarker                       // detached pending generation flip; still reachable via hashItem for late readers
)

// node is one owner name's slot in the zone tree: its RRsets, its
// structural links to parent/siblings/children, and the generation
// bookkeeping the applicator mutates in place during a shallow copy.
// Grounded on the teacher's OwnerData (tdns/structs.go) generalized with
// explicit tree links, since OwnerData relies on a flat cmap keyed by
// name rather than a node tree with parent/child structure.
type node struct {
	owner  Name
	rrsets map[uint16]*RRSet

	parent   nodeIndex
	prev     nodeIndex // canonical-order previous node, valid only after RecomputeOrder
	next     nodeIndex
	children map[string]nodeIndex // keyed by Name.Key() of the immediate child label

	flags nodeFlags
	gen   generation // generation this node instance was created/touched in
}

func newNode(owner Name, gen generation) *node {
	return &node{
		owner:    owner,
		rrsets:   make(map[uint16]*RRSet),
		parent:   nilNode,
		prev:     nilNode,
		next:     nilNode,
		children: make(map[string]nodeIndex),
		gen:      gen,
	}
}

// shallowClone copies the node header and the rrsets map (new map, same
// *RRSet pointers) without deep-copying any RRSet; the applicator clones
// an individual RRSet each time it changes it (touchRRSet), leaving the
// shared original untouched (xfrin_get_node_copy / xfrin_copy_rrset
// equivalent).
func (n *node) shallowClone(gen generation) *node {
	c := &node{
		owner:  n.owner,
		rrsets: make(map[uint16]*RRSet, len(n.rrsets)),
		parent: n.parent,
		prev:   n.prev,
		next:   n.next,
		gen:    gen,
	}
	c.children = make(map[string]nodeIndex, len(n.children))
	for k, v := range n.children {
		c.children[k] = v
	}
	for t, s := range n.rrsets {
		c.rrsets[t] = s
	}
	return c
}

func (n *node) rrset(rrtype uint16) *RRSet { return n.rrsets[rrtype] }

func (n *node) setRRSet(s *RRSet) {
	if s.Empty() {
		delete(n.rrsets, s.Type)
		return
	}
	n.rrsets[s.Type] = s
}

// isEmpty reports whether the node carries no RRsets at all, the
// condition under which the applicator's post-order pruning pass
// removes it from the tree (unless it still has children, in which case
// it stays as an empty non-terminal).
func (n *node) isEmpty() bool { return len(n.rrsets) == 0 }

// arena is the append-only (with freelist) backing store for a zone
// generation's node tree, indexed by nodeIndex rather than by pointer so
// that a shallow-copied ZoneContents can hold its own arena while still
// being cheap to construct: unmodified subtrees keep pointing at indices
// that are never touched, exactly paralleling the spirit of the
// original implementation's zone_tree_t using opaque node pointers
// shared between old and new zone.
type arena struct {
	nodes []*node
	free  []nodeIndex
}

func newArena() *arena {
	return &arena{}
}

func (a *arena) alloc(n *node) nodeIndex {
	if len(a.free) > 0 {
		idx := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
		a.nodes[idx] = n
		return idx
	}
	a.nodes = append(a.nodes, n)
	return nodeIndex(len(a.nodes) - 1)
}

func (a *arena) get(idx nodeIndex) *node {
	if idx == nilNode || int(idx) >= len(a.nodes) {
		return nil
	}
	return a.nodes[idx]
}

// release puts idx back onto the freelist; callers must ensure no live
// reference (old-generation reader or fixup pass) still needs the slot,
// i.e. this is only safe after the reader grace period has drained.
func (a *arena) release(idx nodeIndex) {
	if idx == nilNode || int(idx) >= len(a.nodes) {
		return
	}
	a.nodes[idx] = nil
	a.free = append(a.free, idx)
}

// clone produces a new arena containing shallow clones of every live
// node, used when constructing the in-progress generation for an apply.
// The returned remap maps old indices to new indices 1:1 (arena layout
// is preserved), so it is the identity on every live index; because the
// clones keep their indices, their parent/prev/next/children links stay
// valid without any rewriting pass, and shallowCopy discards the remap.
func (a *arena) clone(gen generation) (*arena, map[nodeIndex]nodeIndex) {
	na := &arena{nodes: make([]*node, len(a.nodes))}
	remap := make(map[nodeIndex]nodeIndex, len(a.nodes))
	for i, n := range a.nodes {
		if n == nil {
			continue
		}
		na.nodes[i] = n.shallowClone(gen)
		remap[nodeIndex(i)] = nodeIndex(i)
	}
	return na, remap
}
