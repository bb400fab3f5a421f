/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import (
	"testing"

	"github.com/miekg/dns"
)

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("parsing %q: %v", s, err)
	}
	return rr
}

// TestIXFRSplitterRFC1995Example drives the splitter over the worked
// example from RFC 1995 section 7, the same fixture tdns/ixfr/ixfr_test.go
// checks IxfrFromResponse against.
func TestIXFRSplitterRFC1995Example(t *testing.T) {
	records := []string{
		"jain.ad.jp         SOA NS.JAIN.AD.JP. mohta.jain.ad.jp. 3 600 600 3600000 604800",
		"jain.ad.jp         SOA NS.JAIN.AD.JP. mohta.jain.ad.jp. 1 600 600 3600000 604800",
		"nezu.jain.ad.jp    A   133.69.136.5",
		"jain.ad.jp         SOA NS.JAIN.AD.JP. mohta.jain.ad.jp. 2 600 600 3600000 604800",
		"jain-bb.jain.ad.jp A   133.69.136.4",
		"jain-bb.jain.ad.jp A   192.41.197.2",
		"jain.ad.jp         SOA NS.JAIN.AD.JP. mohta.jain.ad.jp. 2 600 600 3600000 604800",
		"jain-bb.jain.ad.jp A   133.69.136.4",
		"jain.ad.jp         SOA NS.JAIN.AD.JP. mohta.jain.ad.jp. 3 600 600 3600000 604800",
		"jain-bb.jain.ad.jp A   133.69.136.3",
		"jain.ad.jp         SOA NS.JAIN.AD.JP. mohta.jain.ad.jp. 3 600 600 3600000 604800",
	}

	s := NewIXFRSplitter(NewName("jain.ad.jp."))
	var done bool
	var err error
	for i, rec := range records {
		rr := mustRR(t, rec)
		done, err = s.AddRecord(rr)
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if done && i != len(records)-1 {
			t.Fatalf("splitter reported done early at record %d", i)
		}
	}
	if !done {
		t.Fatalf("splitter did not report done at end of stream")
	}

	list := s.List()
	if list.InitialSerial != 1 || list.FinalSerial != 3 {
		t.Fatalf("got initial=%d final=%d, want 1/3", list.InitialSerial, list.FinalSerial)
	}
	css := list.Changesets()
	if len(css) != 2 {
		t.Fatalf("got %d changesets, want 2", len(css))
	}

	if css[0].FromSerial != 1 || css[0].ToSerial != 2 {
		t.Errorf("changeset 0 serials = %d->%d, want 1->2", css[0].FromSerial, css[0].ToSerial)
	}
	if len(css[0].Removed()) != 1 || len(css[0].Added()) != 2 {
		t.Errorf("changeset 0: removed=%d added=%d, want 1/2", len(css[0].Removed()), len(css[0].Added()))
	}

	if css[1].FromSerial != 2 || css[1].ToSerial != 3 {
		t.Errorf("changeset 1 serials = %d->%d, want 2->3", css[1].FromSerial, css[1].ToSerial)
	}
	if len(css[1].Removed()) != 1 || len(css[1].Added()) != 1 {
		t.Errorf("changeset 1: removed=%d added=%d, want 1/1", len(css[1].Removed()), len(css[1].Added()))
	}

	added := list.GetAdded()
	if len(added) != 2 {
		t.Errorf("GetAdded: got %d records, want 2", len(added))
	}
	deleted := list.GetDeleted()
	if len(deleted) != 1 {
		t.Errorf("GetDeleted: got %d records, want 1", len(deleted))
	}
}

// TestIXFRSplitterEmptyTransfer covers the two-SOA "already current"
// form from RFC 1995 section 4.
func TestIXFRSplitterEmptyTransfer(t *testing.T) {
	s := NewIXFRSplitter(NewName("example.com."))
	soa1 := mustRR(t, "example.com. SOA ns.example.com. hostmaster.example.com. 5 600 600 3600000 604800")
	soa2 := mustRR(t, "example.com. SOA ns.example.com. hostmaster.example.com. 5 600 600 3600000 604800")

	done, err := s.AddRecord(soa1)
	if err != nil || done {
		t.Fatalf("unexpected state after first SOA: done=%v err=%v", done, err)
	}
	done, err = s.AddRecord(soa2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Fatalf("expected empty-transfer detection to finish the stream")
	}
	if s.List().Len() != 0 {
		t.Errorf("expected zero changesets for an empty transfer, got %d", s.List().Len())
	}
}

func TestIXFRSplitterRejectsNonSOAOpening(t *testing.T) {
	s := NewIXFRSplitter(NewName("example.com."))
	rr := mustRR(t, "example.com. A 192.0.2.1")
	_, err := s.AddRecord(rr)
	if !IsKind(err, MalformedStream) {
		t.Fatalf("expected MalformedStream, got %v", err)
	}
}

func TestIXFRSplitterRejectsRecordAfterClose(t *testing.T) {
	s := NewIXFRSplitter(NewName("example.com."))
	soa := mustRR(t, "example.com. SOA ns.example.com. hostmaster.example.com. 5 600 600 3600000 604800")
	s.AddRecord(soa)
	s.AddRecord(soa)
	_, err := s.AddRecord(soa)
	if !IsKind(err, MalformedStream) {
		t.Fatalf("expected MalformedStream for a record after close, got %v", err)
	}
}
