/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import "testing"

func TestZoneContentsAddNodeMaterializesParents(t *testing.T) {
	zc := newZoneContents(NewName("example.com."), 1)
	zc.addNode(NewName("a.b.c.example.com."))

	for _, owner := range []string{"c.example.com.", "b.c.example.com.", "a.b.c.example.com."} {
		if zc.GetNode(NewName(owner)) == nil {
			t.Errorf("expected %s to be materialized in the tree", owner)
		}
	}
}

func TestZoneContentsRemoveNodeDetaches(t *testing.T) {
	zc := newZoneContents(NewName("example.com."), 1)
	zc.addNode(NewName("www.example.com."))

	n := zc.removeNode(NewName("www.example.com."))
	if n == nil {
		t.Fatalf("removeNode returned nil for an existing node")
	}
	if zc.GetNode(NewName("www.example.com.")) != nil {
		t.Errorf("node should no longer be reachable from the tree after removal")
	}
	apex := zc.apex()
	if _, ok := apex.children[NewName("www.example.com.").Key()]; ok {
		t.Errorf("parent should no longer list the removed child")
	}
}

func TestZoneContentsShallowCopyIsolation(t *testing.T) {
	base := newZoneContents(NewName("example.com."), 1)
	base.addNode(NewName("www.example.com."))

	copy1 := base.shallowCopy()
	copy1.addNode(NewName("new.example.com."))

	if base.GetNode(NewName("new.example.com.")) != nil {
		t.Errorf("mutating a shallow copy must not affect the base generation")
	}
	if copy1.GetNode(NewName("www.example.com.")) == nil {
		t.Errorf("shallow copy should still see nodes present in the base generation")
	}
}

func TestZoneRCUPublication(t *testing.T) {
	z := NewZone(NewName("example.com."), 1)
	before := z.Contents()

	work := before.shallowCopy()
	work.addNode(NewName("www.example.com."))
	work.serial = 2
	work.finalize()
	z.contents.Store(work)
	z.drainGrace()

	after := z.Contents()
	if after == before {
		t.Fatalf("publication should swap in a new snapshot")
	}
	if before.GetNode(NewName("www.example.com.")) != nil {
		t.Errorf("the old snapshot must remain exactly as readers last saw it")
	}
	if after.GetNode(NewName("www.example.com.")) == nil {
		t.Errorf("the new snapshot should contain the change")
	}
	if after.Serial() != 2 {
		t.Errorf("serial = %d, want 2", after.Serial())
	}
}

func TestZonePruneEmptyNonTerminals(t *testing.T) {
	zc := newZoneContents(NewName("example.com."), 1)
	leaf := NewName("a.b.example.com.")
	idx := zc.addNode(leaf)
	// no RRsets added to leaf or its ancestor b.example.com.: both are
	// empty non-terminals materialized purely to connect the tree.
	_ = idx

	zc.pruneEmptyNonTerminals()

	if zc.GetNode(leaf) != nil {
		t.Errorf("empty leaf with no children should be pruned")
	}
	if zc.GetNode(NewName("b.example.com.")) != nil {
		t.Errorf("empty ancestor left childless by the prune should also be pruned")
	}
}
