/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import (
	"github.com/anstenberg/xfrcore/internal/xfrutil"
	"github.com/miekg/dns"
)

// Changeset is one SOA-to-SOA difference: remove the records listed in
// Removed, then add the records listed in Added, to go from FromSerial
// to ToSerial. Grounded on tdns/ixfr's DiffSequence (diffsequence.go),
// renamed into this package's vocabulary. Each section is a flat list
// of dns.RR in arrival order; the applicator does the per-RRset
// grouping itself by looking up each record's owner node and type.
type Changeset struct {
	FromSerial uint32
	ToSerial   uint32

	removed xfrutil.GrowList[dns.RR]
	added   xfrutil.GrowList[dns.RR]

	// NewSOA is the apex SOA record this changeset results in, captured
	// from the boundary SOA that closes its add section rather than
	// synthesized, so refresh/retry/expire/minimum/mname/rname survive
	// unchanged across the apply (xfrin_apply_replace_soa equivalent).
	NewSOA *dns.SOA
}

func NewChangeset(from, to uint32) *Changeset {
	return &Changeset{FromSerial: from, ToSerial: to}
}

// Removed returns the records to strip from the owner's RRsets, in the
// order they were accumulated.
func (c *Changeset) Removed() []dns.RR { return c.removed.Items() }

// Added returns the records to merge into the owner's RRsets.
func (c *Changeset) Added() []dns.RR { return c.added.Items() }

// AddRemoved appends rr to the remove side of the changeset. Unlike the
// teacher's AddDeleted (diffsequence.go), which parses from a string and
// panics on a parse error, this takes an already-parsed dns.RR and never
// panics: callers surface parse failures as a MalformedStream CoreError
// instead (see the response parsers). Growth goes through
// internal/xfrutil.GrowList rather than a plain append, since a
// changeset's remove/add sections are built up record-by-record across
// an entire transfer session.
func (c *Changeset) AddRemoved(rr dns.RR) { c.removed.Append(rr) }

func (c *Changeset) AddAdded(rr dns.RR) { c.added.Append(rr) }

// Empty reports whether this changeset carries no record changes at
// all — legal for a serial bump with no data change, but the applicator
// still must perform the SOA replacement and generation bump for it.
func (c *Changeset) Empty() bool { return c.removed.Len() == 0 && c.added.Len() == 0 }

// Equals compares two changesets structurally, ignoring record order,
// grounded on tdns/ixfr's DiffSequence.Equals / Ixfr.Equals used by its
// table-driven tests.
func (c *Changeset) Equals(o *Changeset) bool {
	if c.FromSerial != o.FromSerial || c.ToSerial != o.ToSerial {
		return false
	}
	return rrSetEqual(c.Removed(), o.Removed()) && rrSetEqual(c.Added(), o.Added())
}

func rrSetEqual(a, b []dns.RR) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ra := range a {
		found := false
		for i, rb := range b {
			if used[i] {
				continue
			}
			if dns.IsDuplicate(ra, rb) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ChangesetList is an ordered sequence of changesets spanning a
// transfer-in session, the equivalent of the teacher's Ixfr.DiffSequences
// (tdns/ixfr/ixfr.go) but decoupled from AXFR-vs-IXFR framing: an AXFR
// response is not represented as a ChangesetList at all
// (AXFRAccumulator produces a ZoneContents instead), and a
// ChangesetList may hold zero Changesets, as it does after the two-SOA
// empty IXFR form.
type ChangesetList struct {
	InitialSerial uint32
	FinalSerial   uint32

	list xfrutil.GrowList[*Changeset]
}

func NewChangesetList() *ChangesetList {
	return &ChangesetList{}
}

// Changesets returns the changesets accumulated so far, in apply order.
func (l *ChangesetList) Changesets() []*Changeset { return l.list.Items() }

// Allocate grows the list by one changeset spanning from->to and returns
// it for the caller (the IXFR splitter state machine) to populate.
// Grounded on the spec's allocate/grow vocabulary for the changeset
// model; growth uses the amortized-doubling helper in internal/xfrutil
// rather than append's default growth (spec.md 4.5.3).
func (l *ChangesetList) Allocate(from, to uint32) *Changeset {
	cs := NewChangeset(from, to)
	if l.list.Len() == 0 {
		l.InitialSerial = from
	}
	l.list.Append(cs)
	l.FinalSerial = to
	return cs
}

func (l *ChangesetList) Len() int { return l.list.Len() }

// GetAdded returns the net set of records added across the whole list,
// after canceling out adds that are later removed by a subsequent
// changeset in the same list — mirroring Ixfr.GetAdded /
// Ixfr.GetCompressed (tdns/ixfr/ixfr.go) which fold a DiffSequence chain
// down to a single net effect.
func (l *ChangesetList) GetAdded() []dns.RR {
	var added, removed []dns.RR
	for _, cs := range l.list.Items() {
		added = append(added, cs.Added()...)
		removed = append(removed, cs.Removed()...)
	}
	return Difference(added, removed)
}

func (l *ChangesetList) GetDeleted() []dns.RR {
	var added, removed []dns.RR
	for _, cs := range l.list.Items() {
		added = append(added, cs.Added()...)
		removed = append(removed, cs.Removed()...)
	}
	return Difference(removed, added)
}
