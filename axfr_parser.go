/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import (
	"github.com/miekg/dns"
)

type axfrState uint8

const (
	axfrExpectFirstSOA axfrState = iota
	axfrAccumulating
	axfrDone
)

// AXFRAccumulator assembles a full-zone transfer's flat SOA-bracketed
// record stream into a ZoneContents snapshot, one record at a time so
// the caller can feed it straight from a streaming transfer session.
// Grounded on the teacher's ReadZoneData/SortFunc (tdns/dnsutils.go),
// which parse a zone file/stream into OwnerData buckets by dispatching
// on rr.Header().Rrtype; generalized here into a resumable struct with
// the AXFR-specific opening/closing SOA bracket the zone-file reader
// does not need to care about.
type AXFRAccumulator struct {
	zone    Name
	state   axfrState
	serial  uint32
	zc      *ZoneContents
	records int
}

func NewAXFRAccumulator(zone Name) *AXFRAccumulator {
	return &AXFRAccumulator{zone: zone, state: axfrExpectFirstSOA}
}

// AddRecord feeds the next record of the transfer. done=true once the
// closing SOA (matching the opening SOA's serial) has been consumed.
func (a *AXFRAccumulator) AddRecord(rr dns.RR) (done bool, err error) {
	a.records++
	switch a.state {
	case axfrExpectFirstSOA:
		soa, ok := rr.(*dns.SOA)
		if !ok {
			return false, newErr(MalformedStream, "axfr response does not open with a SOA")
		}
		a.serial = soa.Serial
		a.zc = newZoneContents(a.zone, soa.Serial)
		a.dispatch(rr)
		a.state = axfrAccumulating
		return false, nil

	case axfrAccumulating:
		if soa, ok := rr.(*dns.SOA); ok && soa.Serial == a.serial && rr.Header().Name == a.zone.String() {
			a.state = axfrDone
			return true, nil
		}
		a.dispatch(rr)
		return false, nil

	default: // axfrDone
		return true, newErr(MalformedStream, "record received after axfr transfer closed")
	}
}

// dispatch routes rr into the owner's node, merging into the existing
// RRSet for its type (or a covering RRSIG into that RRSet's Sigs),
// mirroring the teacher's SortFunc dispatch on Rrtype (tdns/dnsutils.go)
// generalized with the RDATA-union merge RRSet.AddRecord performs
// instead of a flat append. An NSEC3 record (or an RRSIG covering
// NSEC3) is routed to the parallel NSEC3 index instead of the main
// tree, per spec.md 4.4.1's routing rule.
func (a *AXFRAccumulator) dispatch(rr dns.RR) {
	owner := NewName(rr.Header().Name)

	if rrsig, ok := rr.(*dns.RRSIG); ok {
		covered := rrsig.TypeCovered
		n := a.nodeFor(owner, covered == dns.TypeNSEC3)
		if n == nil {
			return
		}
		s := n.rrset(covered)
		if s == nil {
			s = NewRRSet(owner, covered, rr.Header().Class)
			n.rrsets[covered] = s
		}
		s.AddSig(rr)
		return
	}

	t := rr.Header().Rrtype
	n := a.nodeFor(owner, t == dns.TypeNSEC3)
	if n == nil {
		return
	}
	s := n.rrset(t)
	if s == nil {
		s = NewRRSet(owner, t, rr.Header().Class)
		n.rrsets[t] = s
	}
	s.AddRecord(rr)
}

func (a *AXFRAccumulator) nodeFor(owner Name, isNSEC3 bool) *node {
	var idx nodeIndex
	if isNSEC3 {
		idx = a.zc.addNSEC3Node(owner)
	} else {
		idx = a.zc.addNode(owner)
	}
	return a.zc.arena.get(idx)
}

// Finish returns the assembled snapshot. Since the accumulator does not
// maintain canonical order incrementally, Finish runs RecomputeOrder on
// the snapshot itself before returning it.
func (a *AXFRAccumulator) Finish() (*ZoneContents, error) {
	if a.state != axfrDone {
		return nil, newErr(MalformedStream, "axfr transfer incomplete: no closing SOA seen")
	}
	a.zc.RecomputeOrder()
	a.zc.finalize()
	return a.zc, nil
}
