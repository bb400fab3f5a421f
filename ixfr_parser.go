/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import (
	"github.com/miekg/dns"
)

// ixfrState is the changeset-splitter's state, walked one resource
// record at a time so a caller can feed it records as they arrive
// across multiple transfer packets rather than buffering the whole
// response. Grounded on the walk tdns/ixfr.IxfrFromResponse performs in
// one pass over a complete dns.Msg (tdns/ixfr/ixfr.go), reshaped here
// into an explicit resumable machine.
type ixfrState uint8

const (
	ixfrExpectFinalSOA    ixfrState = iota // first record: establishes the transfer's target serial
	ixfrExpectSOAOrAdd                     // after the final SOA: either the empty-transfer closing SOA, or the first "from" boundary SOA
	ixfrExpectBoundaryRR                    // inside a remove or add section, accumulating records
	ixfrDone
)

// IXFRSplitter turns the flat SOA-delimited record stream of an IXFR
// response into a ChangesetList, one Changeset per SOA-to-SOA step.
// Grounded on tdns/ixfr/ixfr.go's IxfrFromResponse + AddDiffSequence,
// generalized from a one-shot function over a full dns.Msg into an
// incremental accumulator so a caller can drive it straight from a TCP
// read loop.
type IXFRSplitter struct {
	zone        Name
	state       ixfrState
	finalSerial uint32
	list        *ChangesetList
	cur         *Changeset
	adding      bool
	records     int
}

func NewIXFRSplitter(zone Name) *IXFRSplitter {
	return &IXFRSplitter{zone: zone, state: ixfrExpectFinalSOA, list: NewChangesetList()}
}

// List returns the changeset list accumulated so far. Only meaningful
// once AddRecord has reported done.
func (s *IXFRSplitter) List() *ChangesetList { return s.list }

// AddRecord feeds the next record of the response into the splitter.
// It returns done=true once the closing SOA of the transfer has been
// consumed; any record fed after that is a MalformedStream error.
func (s *IXFRSplitter) AddRecord(rr dns.RR) (done bool, err error) {
	s.records++
	soa, isSOA := rr.(*dns.SOA)

	switch s.state {
	case ixfrExpectFinalSOA:
		if !isSOA {
			return false, newErr(MalformedStream, "ixfr response does not open with a SOA")
		}
		s.finalSerial = soa.Serial
		s.list.FinalSerial = soa.Serial
		s.state = ixfrExpectSOAOrAdd
		return false, nil

	case ixfrExpectSOAOrAdd:
		// The non-consuming transition: seeing a second SOA here does
		// not itself carry changeset data. If its serial equals the
		// final serial, the transfer is the empty two-SOA form (zone
		// already current, RFC 1995 section 4); otherwise it is the
		// "from" boundary opening the first remove section.
		if !isSOA {
			return false, newErr(MalformedStream, "ixfr response's second record is not a SOA (axfr-style fallback not handled by this splitter)")
		}
		if soa.Serial == s.finalSerial {
			s.state = ixfrDone
			return true, nil
		}
		s.list.InitialSerial = soa.Serial
		s.cur = s.list.Allocate(soa.Serial, 0)
		s.adding = false
		s.state = ixfrExpectBoundaryRR
		return false, nil

	case ixfrExpectBoundaryRR:
		if isSOA {
			return s.handleBoundary(soa)
		}
		if s.adding {
			s.cur.AddAdded(rr)
		} else {
			s.cur.AddRemoved(rr)
		}
		return false, nil

	default: // ixfrDone
		return true, newErr(MalformedStream, "record received after ixfr transfer closed")
	}
}

func (s *IXFRSplitter) handleBoundary(soa *dns.SOA) (bool, error) {
	if s.adding {
		s.cur.ToSerial = soa.Serial
		s.cur.NewSOA = soa
		if soa.Serial == s.finalSerial {
			s.list.FinalSerial = soa.Serial
			s.state = ixfrDone
			return true, nil
		}
		s.cur = s.list.Allocate(soa.Serial, 0)
		s.adding = false
		return false, nil
	}
	// was removing: this SOA opens the add section of the same changeset
	s.cur.ToSerial = soa.Serial
	s.adding = true
	return false, nil
}
