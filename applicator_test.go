/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import (
	"testing"

	"github.com/miekg/dns"
)

func buildTestZone(t *testing.T) *Zone {
	t.Helper()
	zone := NewName("example.com.")
	records := []string{
		"example.com. SOA ns1.example.com. hostmaster.example.com. 1 600 600 3600000 604800",
		"example.com. NS  ns1.example.com.",
		"www.example.com. A 192.0.2.10",
		"example.com. SOA ns1.example.com. hostmaster.example.com. 1 600 600 3600000 604800",
	}
	a := NewAXFRAccumulator(zone)
	for _, rec := range records {
		if _, err := a.AddRecord(mustRR(t, rec)); err != nil {
			t.Fatalf("%v", err)
		}
	}
	zc, err := a.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	z := &Zone{}
	z.contents.Store(zc)
	return z
}

func TestApplyChangesetListReplacesRecordAndBumpsSerial(t *testing.T) {
	z := buildTestZone(t)

	list := NewChangesetList()
	cs := list.Allocate(1, 2)
	cs.AddRemoved(mustRR(t, "www.example.com. 600 A 192.0.2.10"))
	cs.AddAdded(mustRR(t, "www.example.com. 600 A 192.0.2.20"))
	cs.NewSOA = mustRR(t, "example.com. SOA ns1.example.com. hostmaster.example.com. 2 600 600 3600000 604800").(*dns.SOA)
	list.FinalSerial = 2

	if err := z.ApplyChangesetList(list); err != nil {
		t.Fatalf("ApplyChangesetList: %v", err)
	}

	zc := z.Contents()
	if zc.Serial() != 2 {
		t.Fatalf("serial = %d, want 2", zc.Serial())
	}
	www := zc.GetNode(NewName("www.example.com."))
	if www == nil {
		t.Fatalf("www.example.com. should still exist")
	}
	s := www.rrset(dns.TypeA)
	if s == nil || s.Len() != 1 {
		t.Fatalf("www A set = %v, want exactly 1 record", s)
	}
	if s.RRs[0].(*dns.A).A.String() != "192.0.2.20" {
		t.Errorf("surviving record = %v, want 192.0.2.20", s.RRs[0])
	}
}

func TestApplyChangesetListTreatsRemoveOfAbsentRecordAsNoop(t *testing.T) {
	z := buildTestZone(t)

	list := NewChangesetList()
	cs := list.Allocate(1, 2)
	cs.AddRemoved(mustRR(t, "www.example.com. 600 A 192.0.2.99")) // never existed
	cs.NewSOA = mustRR(t, "example.com. SOA ns1.example.com. hostmaster.example.com. 2 600 600 3600000 604800").(*dns.SOA)
	list.FinalSerial = 2

	if err := z.ApplyChangesetList(list); err != nil {
		t.Fatalf("ApplyChangesetList: %v", err)
	}
	if z.Contents().Serial() != 2 {
		t.Errorf("serial = %d, want 2: a remove of an absent record must not fail the apply", z.Contents().Serial())
	}
	www := z.Contents().GetNode(NewName("www.example.com."))
	if www == nil || www.rrset(dns.TypeA) == nil || www.rrset(dns.TypeA).Len() != 1 {
		t.Errorf("www A set should be unchanged by the no-op remove, got %v", www)
	}
}

func TestApplyChangesetListTreatsRemoveOfAbsentOwnerAsNoop(t *testing.T) {
	z := buildTestZone(t)

	list := NewChangesetList()
	cs := list.Allocate(1, 2)
	cs.AddRemoved(mustRR(t, "ghost.example.com. 600 A 192.0.2.99")) // owner never existed
	cs.NewSOA = mustRR(t, "example.com. SOA ns1.example.com. hostmaster.example.com. 2 600 600 3600000 604800").(*dns.SOA)
	list.FinalSerial = 2

	if err := z.ApplyChangesetList(list); err != nil {
		t.Fatalf("ApplyChangesetList: %v", err)
	}
	if z.Contents().Serial() != 2 {
		t.Errorf("serial = %d, want 2: a remove of an absent owner must not fail the apply", z.Contents().Serial())
	}
}

func TestApplyChangesetListRejectsConcurrentApply(t *testing.T) {
	z := buildTestZone(t)
	if !z.applyMu.TryLock() {
		t.Fatalf("setup: could not acquire applyMu")
	}
	defer z.applyMu.Unlock()

	list := NewChangesetList()
	cs := list.Allocate(1, 2)
	cs.NewSOA = mustRR(t, "example.com. SOA ns1.example.com. hostmaster.example.com. 2 600 600 3600000 604800").(*dns.SOA)
	list.FinalSerial = 2

	err := z.ApplyChangesetList(list)
	if !IsKind(err, ConcurrentUpdateInProgress) {
		t.Fatalf("expected ConcurrentUpdateInProgress, got %v", err)
	}
}

func TestApplyChangesetListRejectsSerialMismatch(t *testing.T) {
	z := buildTestZone(t)

	list := NewChangesetList()
	list.Allocate(99, 100)
	list.InitialSerial = 99
	list.FinalSerial = 100

	err := z.ApplyChangesetList(list)
	if !IsKind(err, SerialMismatch) {
		t.Fatalf("expected SerialMismatch, got %v", err)
	}
}

func TestApplyChangesetListPrunesEmptiedOwner(t *testing.T) {
	z := buildTestZone(t)

	list := NewChangesetList()
	cs := list.Allocate(1, 2)
	cs.AddRemoved(mustRR(t, "www.example.com. 600 A 192.0.2.10"))
	cs.NewSOA = mustRR(t, "example.com. SOA ns1.example.com. hostmaster.example.com. 2 600 600 3600000 604800").(*dns.SOA)
	list.FinalSerial = 2

	if err := z.ApplyChangesetList(list); err != nil {
		t.Fatalf("ApplyChangesetList: %v", err)
	}
	if z.Contents().GetNode(NewName("www.example.com.")) != nil {
		t.Errorf("owner left with zero RRsets and no children should be pruned")
	}
}
