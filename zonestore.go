/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/twotwotwo/sorts"
)

// generation is the tri-state tag every node and the ZoneContents header
// carry through an apply: a reader taking a snapshot pointer only ever
// sees genOld or genNewFinished, never genNewInProgress, which exists
// purely so the applicator can tell its own in-flight nodes apart from
// nodes it has not yet touched.
type generation uint8

const (
	genOld generation = iota
	genNewInProgress
	genNewFinished
)

// ZoneContents is one immutable-once-published snapshot of a zone's
// data: the node tree, the apex, and the interned name table backing
// it. Readers hold a *ZoneContents obtained from Zone.Contents and never
// see it mutated in place; the applicator builds a new ZoneContents by
// shallow-copying this one's arena and swaps it in on success.
//
// Grounded on the teacher's ZoneData (tdns/structs.go), split here into
// an immutable snapshot (ZoneContents) and a mutable owning handle
// (Zone) so that RCU-style publication has a clear seam; ZoneData
// itself conflates the two.
type ZoneContents struct {
	origin Name
	serial uint32

	arena   *arena
	apexIdx nodeIndex
	tree    map[string]nodeIndex // Name.Key() -> nodeIndex, doubles as the hash index

	// nsec3tree is a parallel, flat index for NSEC3-owner records: hashed
	// owner names that carry no structural position of their own in the
	// DNS tree, kept separate from tree per spec.md 4.4.1's routing rule
	// rather than materialized as ordinary children of the apex.
	nsec3tree map[string]nodeIndex

	names *NameTable
	gen   generation
}

func newZoneContents(origin Name, serial uint32) *ZoneContents {
	zc := &ZoneContents{
		origin:    origin,
		serial:    serial,
		arena:     newArena(),
		tree:      make(map[string]nodeIndex),
		nsec3tree: make(map[string]nodeIndex),
		names:     NewNameTable(),
		gen:       genOld,
	}
	apex := newNode(origin, genOld)
	zc.apexIdx = zc.arena.alloc(apex)
	zc.tree[origin.Key()] = zc.apexIdx
	zc.names.Intern(origin.String())
	return zc
}

func (zc *ZoneContents) Origin() Name  { return zc.origin }
func (zc *ZoneContents) Serial() uint32 { return zc.serial }

func (zc *ZoneContents) apex() *node { return zc.arena.get(zc.apexIdx) }

// GetNode returns the node for name, or nil if no such owner exists in
// this snapshot.
func (zc *ZoneContents) GetNode(name Name) *node {
	idx, ok := zc.tree[name.Key()]
	if !ok {
		return nil
	}
	return zc.arena.get(idx)
}

// GetNSEC3Node returns the node for an NSEC3-owner name, or nil if not
// present, looking it up in the parallel NSEC3 index rather than the
// main tree.
func (zc *ZoneContents) GetNSEC3Node(name Name) *node {
	idx, ok := zc.nsec3tree[name.Key()]
	if !ok {
		return nil
	}
	return zc.arena.get(idx)
}

// addNSEC3Node inserts name into the NSEC3 index, creating a node with
// no structural parent/child links: NSEC3 owner names are hashed and
// carry no position in the DNS tree of their own, so unlike addNode
// there is no parent to materialize.
func (zc *ZoneContents) addNSEC3Node(name Name) nodeIndex {
	if idx, ok := zc.nsec3tree[name.Key()]; ok {
		return idx
	}
	n := newNode(name, zc.gen)
	n.parent = nilNode
	idx := zc.arena.alloc(n)
	zc.nsec3tree[name.Key()] = idx
	zc.names.Intern(name.String())
	return idx
}

// addNode inserts name into the tree, materializing any missing parents
// as empty non-terminals, mirroring xfrin_add_new_node's
// create_parents behavior. Returns the (possibly pre-existing) node's
// index.
func (zc *ZoneContents) addNode(name Name) nodeIndex {
	if idx, ok := zc.tree[name.Key()]; ok {
		return idx
	}
	n := newNode(name, zc.gen)
	idx := zc.arena.alloc(n)
	zc.tree[name.Key()] = idx
	zc.names.Intern(name.String())

	parent, ok := name.Parent()
	inZone := ok && (parent.Equal(zc.origin) || parent.IsSubdomainOf(zc.origin))
	if !inZone {
		n.parent = zc.apexIdx
		zc.linkChild(zc.apexIdx, name, idx)
		return idx
	}
	parentIdx, exists := zc.tree[parent.Key()]
	if !exists {
		parentIdx = zc.addNode(parent)
		if pn := zc.arena.get(parentIdx); pn != nil {
			pn.flags |= flagEmptyNonTerm
		}
	}
	n.parent = parentIdx
	zc.linkChild(parentIdx, name, idx)
	return idx
}

func (zc *ZoneContents) linkChild(parentIdx nodeIndex, childName Name, childIdx nodeIndex) {
	p := zc.arena.get(parentIdx)
	if p == nil {
		return
	}
	if p.children == nil {
		p.children = make(map[string]nodeIndex)
	}
	p.children[childName.Key()] = childIdx
}

// removeNode detaches name from the tree (parent's child map entry and
// the tree index), returning the freed node for deferred release by the
// caller once reader grace has drained. It does not touch the arena
// slot itself — xfrin_remove_rdata / xfrin_check_node_in_tree leave that
// to the caller's cleanup phase (hashItem equivalent).
func (zc *ZoneContents) removeNode(name Name) *node {
	idx, ok := zc.tree[name.Key()]
	if !ok {
		return nil
	}
	n := zc.arena.get(idx)
	if n == nil {
		return nil
	}
	delete(zc.tree, name.Key())
	if p := zc.arena.get(n.parent); p != nil {
		delete(p.children, name.Key())
	}
	zc.names.Release(name)
	n.flags |= flagRemovedMarker
	return n
}

// shallowCopy produces a new ZoneContents with its own node layer and
// indexes: a cloned arena (shallow-cloned nodes), a fresh tree index map
// (same nodeIndex values, since clone() preserves arena layout), and a
// shallow-copied name table whose *nameEntry values, refcounts
// included, are still shared with zc. This is the "shallow copy, original
// untouched" step of the applicator, paralleling libknot's
// xfrin_copy_old_rrset/xfrin_get_node_copy strategy of cloning lazily
// rather than deep-copying the whole tree up front — here the whole
// node layer is cloned eagerly (cheap: headers only) while RRSets are
// still shared pointers until first write.
func (zc *ZoneContents) shallowCopy() *ZoneContents {
	na, _ := zc.arena.clone(genNewInProgress)
	nc := &ZoneContents{
		origin:    zc.origin,
		serial:    zc.serial,
		arena:     na,
		apexIdx:   zc.apexIdx,
		tree:      make(map[string]nodeIndex, len(zc.tree)),
		nsec3tree: make(map[string]nodeIndex, len(zc.nsec3tree)),
		names:     zc.names.ShallowCopy(),
		gen:       genNewInProgress,
	}
	for k, v := range zc.tree {
		nc.tree[k] = v
	}
	for k, v := range zc.nsec3tree {
		nc.nsec3tree[k] = v
	}
	return nc
}

// finalize walks every node and flips its generation tag from
// genNewInProgress to genNewFinished, the "fix_generation" pass
// (xfrin_fix_gen_in_node) run once the whole changeset has applied
// cleanly and just before publication.
func (zc *ZoneContents) finalize() {
	zc.gen = genNewFinished
	for _, n := range zc.arena.nodes {
		if n != nil && n.gen == genNewInProgress {
			n.gen = genNewFinished
		}
	}
}

// pruneEmptyNonTerminals removes any node left with no RRsets and no
// children after a changeset's removals have been applied, walking
// post-order so a chain of now-empty ancestors collapses in one pass.
// Leaves an empty node with live children behind as an empty
// non-terminal, matching standard DNS tree-pruning semantics.
func (zc *ZoneContents) pruneEmptyNonTerminals() {
	var owners []Name
	for _, idx := range zc.tree {
		n := zc.arena.get(idx)
		if n == nil || idx == zc.apexIdx {
			continue
		}
		owners = append(owners, n.owner)
	}
	sort.Sort(sort.Reverse(byDepth(owners)))
	for _, o := range owners {
		idx, ok := zc.tree[o.Key()]
		if !ok {
			continue
		}
		n := zc.arena.get(idx)
		if n == nil || idx == zc.apexIdx {
			continue
		}
		if n.isEmpty() && len(n.children) == 0 {
			zc.removeNode(o)
			zc.arena.release(idx)
		}
	}
}

// byDepth orders names by ascending label count; pruneEmptyNonTerminals
// sorts it in reverse so that leaves are visited (and thus pruned)
// before their ancestors.
type byDepth []Name

func (d byDepth) Len() int           { return len(d) }
func (d byDepth) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }
func (d byDepth) Less(i, j int) bool { return d[i].LabelCount() < d[j].LabelCount() }

// RecomputeOrder rebuilds the prev/next canonical-order doubly-linked
// list across every live node, grounded on the teacher's ComputeIndices
// (tdns/dnsutils.go) which feeds an Owners slice through
// twotwotwo/sorts.Quicksort; this is invoked at checkpoints (AXFR
// completion, applicator finalize) rather than per-mutation, since full
// canonical ordering is expensive to maintain incrementally.
func (zc *ZoneContents) RecomputeOrder() {
	owners := make([]Name, 0, len(zc.tree))
	for _, idx := range zc.tree {
		if n := zc.arena.get(idx); n != nil {
			owners = append(owners, n.owner)
		}
	}
	sorts.Quicksort(byCanonicalOrder(owners))
	for i, o := range owners {
		idx := zc.tree[o.Key()]
		n := zc.arena.get(idx)
		if n == nil {
			continue
		}
		if i > 0 {
			n.prev = zc.tree[owners[i-1].Key()]
		} else {
			n.prev = nilNode
		}
		if i < len(owners)-1 {
			n.next = zc.tree[owners[i+1].Key()]
		} else {
			n.next = nilNode
		}
	}
}

// NodeCount returns the number of live owner names in this snapshot.
func (zc *ZoneContents) NodeCount() int { return len(zc.tree) }

// Zone is the mutable, concurrency-safe owning handle around a sequence
// of ZoneContents generations: readers call Contents() and walk the
// returned snapshot lock-free; the applicator holds applyMu for the
// duration of one ApplyChangesetList call and publishes the result with
// one atomic pointer swap.
//
// Grounded on the teacher's ZoneData.mu sync.RWMutex field
// (tdns/structs.go) used to protect BumpSerial/ApplyZoneUpdateToZoneData;
// replaced here with atomic.Pointer publication so readers never block
// on the applicator, matching the read-copy-update requirement this
// component exists to satisfy.
type Zone struct {
	contents atomic.Pointer[ZoneContents]
	applyMu  sync.Mutex

	epoch   atomic.Int64
	parityA atomic.Int64
	parityB atomic.Int64
}

func NewZone(origin Name, serial uint32) *Zone {
	z := &Zone{}
	z.contents.Store(newZoneContents(origin, serial))
	return z
}

// Contents returns the current published snapshot. Safe to call
// concurrently with an in-flight apply; the in-flight generation is
// never visible here until ApplyChangesetList completes and swaps it in.
func (z *Zone) Contents() *ZoneContents { return z.contents.Load() }

// enterRead marks the calling goroutine's read-side critical section,
// returning the parity bucket it landed in. A hand-rolled
// parity-counter epoch scheme stands in for a general epoch-based
// reclamation library (see DESIGN.md for why no library in the
// available stack covers this).
func (z *Zone) enterRead() int64 {
	e := z.epoch.Load()
	if e%2 == 0 {
		z.parityA.Add(1)
	} else {
		z.parityB.Add(1)
	}
	return e
}

func (z *Zone) exitRead(e int64) {
	if e%2 == 0 {
		z.parityA.Add(-1)
	} else {
		z.parityB.Add(-1)
	}
}

// drainGrace flips the epoch and blocks until every reader that entered
// under the previous parity has exited, guaranteeing it is then safe to
// release arena slots freed by the apply that just published.
func (z *Zone) drainGrace() {
	prev := z.epoch.Add(1) - 1
	for {
		var n int64
		if prev%2 == 0 {
			n = z.parityA.Load()
		} else {
			n = z.parityB.Load()
		}
		if n == 0 {
			return
		}
	}
}

// withReadLease runs fn with the zone's current snapshot, holding an
// epoch lease for the duration so any concurrent apply's grace drain
// waits for fn to return before recycling arena slots.
func (z *Zone) withReadLease(fn func(*ZoneContents)) {
	e := z.enterRead()
	defer z.exitRead(e)
	fn(z.Contents())
}
