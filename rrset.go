/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import (
	"github.com/miekg/dns"
)

// RRSet is the owner's data for a single (name, type) pair: a set of
// RDATA-distinct records sharing one TTL, plus any covering RRSIGs.
// Grounded on the teacher's RRset (tdns/structs.go) which pairs RRs with
// RRSIGs under a single Name/RRtype key; generalized here with the
// merge/subtract operations the applicator and AXFR accumulator need.
type RRSet struct {
	Name  Name
	Type  uint16
	Class uint16
	TTL   uint32
	RRs   []dns.RR
	Sigs  []dns.RR // RRSIGs covering Type, kept alongside rather than under their own RRSIG RRSet
}

func NewRRSet(name Name, rrtype, class uint16) *RRSet {
	return &RRSet{Name: name, Type: rrtype, Class: class}
}

// Clone returns a shallow copy: a new RRSet header with copied slices,
// but the dns.RR elements themselves are not deep-copied (RRs are
// treated as immutable once parsed, per the shallow-copy-on-write
// discipline used throughout the applicator).
func (s *RRSet) Clone() *RRSet {
	if s == nil {
		return nil
	}
	c := &RRSet{Name: s.Name, Type: s.Type, Class: s.Class, TTL: s.TTL}
	if s.RRs != nil {
		c.RRs = append([]dns.RR(nil), s.RRs...)
	}
	if s.Sigs != nil {
		c.Sigs = append([]dns.RR(nil), s.Sigs...)
	}
	return c
}

func (s *RRSet) Len() int { return len(s.RRs) }

// containsIdentical reports whether rr already has an RDATA-identical
// member in the set, using dns.IsDuplicate the way the teacher's
// ZoneUpdateChangesDelegationData dedups incoming RRs (tdns/zone_updater.go).
func (s *RRSet) containsIdentical(rr dns.RR) bool {
	for _, have := range s.RRs {
		if dns.IsDuplicate(have, rr) {
			return true
		}
	}
	return false
}

// AddRecord merges rr into the set: a duplicate (by RDATA) is a no-op,
// a new RDATA is appended, and TTL is normalized to the minimum TTL
// observed across members of the set, mirroring RFC 2181 5.2's
// same-TTL-per-RRset rule by force rather than by validation.
func (s *RRSet) AddRecord(rr dns.RR) {
	if s.containsIdentical(rr) {
		return
	}
	s.RRs = append(s.RRs, rr)
	ttl := rr.Header().Ttl
	if s.Len() == 1 || ttl < s.TTL {
		s.TTL = ttl
	}
}

// AddSig appends an RRSIG covering this set, deduplicated by RDATA.
func (s *RRSet) AddSig(rr dns.RR) {
	for _, have := range s.Sigs {
		if dns.IsDuplicate(have, rr) {
			return
		}
	}
	s.Sigs = append(s.Sigs, rr)
}

// RemoveRecord deletes the RDATA-identical member of rr, if present,
// returning whether a removal occurred. Used by the applicator's
// REMOVE-section processing (xfrin_apply_remove_normal equivalent).
func (s *RRSet) RemoveRecord(rr dns.RR) bool {
	for i, have := range s.RRs {
		if dns.IsDuplicate(have, rr) {
			s.RRs = append(s.RRs[:i], s.RRs[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveSig deletes the RDATA-identical covering RRSIG, if present.
func (s *RRSet) RemoveSig(rr dns.RR) bool {
	for i, have := range s.Sigs {
		if dns.IsDuplicate(have, rr) {
			s.Sigs = append(s.Sigs[:i], s.Sigs[i+1:]...)
			return true
		}
	}
	return false
}

// Empty reports whether the set carries neither data nor signatures,
// the trigger condition for pruning a node's RRTYPE slot entirely.
func (s *RRSet) Empty() bool { return s == nil || (len(s.RRs) == 0 && len(s.Sigs) == 0) }

// Difference returns the members of a not present (by RDATA) in b,
// used by the changeset model's GetAdded/GetDeleted reduction,
// grounded on tdns/ixfr/diffsequence.go's getDifference.
func Difference(a, b []dns.RR) []dns.RR {
	var out []dns.RR
	for _, ra := range a {
		found := false
		for _, rb := range b {
			if dns.IsDuplicate(ra, rb) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, ra)
		}
	}
	return out
}
