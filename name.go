/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import (
	"strings"

	"github.com/miekg/dns"
)

// Name is a DNS owner name: wire-encodable, case-insensitive at
// comparison, with a total order compatible with canonical DNS ordering
// (RFC 4034 6.1, compared label-by-label from the rightmost label).
type Name struct {
	wire string // FQDN, original case preserved, used for wire encoding/printing
	key  string // canonical sort/compare key: lowercased labels, rightmost first
}

// NewName interns nothing by itself; see NameTable for the refcounted
// owning handle. NewName just builds a comparable value.
func NewName(s string) Name {
	s = dns.Fqdn(s)
	labels := dns.SplitDomainName(s)
	rev := make([]string, len(labels))
	for i, l := range labels {
		rev[len(labels)-1-i] = strings.ToLower(l)
	}
	return Name{wire: s, key: strings.Join(rev, "\x00")}
}

func (n Name) String() string { return n.wire }

// Key returns the canonical comparison key, suitable as a map key for
// the zone's node tree and hash table.
func (n Name) Key() string { return n.key }

func (n Name) IsRoot() bool { return n.wire == "." }

func (n Name) Equal(o Name) bool { return n.key == o.key }

// Compare returns <0, 0, >0 as n sorts before, equal to, or after o in
// canonical DNS order.
func (n Name) Compare(o Name) int { return strings.Compare(n.key, o.key) }

// Parent returns the immediate parent name and true, or the zero Name and
// false if n is already the root.
func (n Name) Parent() (Name, bool) {
	labels := dns.SplitDomainName(n.wire)
	if len(labels) == 0 {
		return Name{}, false
	}
	return NewName(strings.Join(labels[1:], ".") + "."), true
}

// IsSubdomainOf reports whether n is equal to or below zone in the DNS
// tree.
func (n Name) IsSubdomainOf(zone Name) bool {
	return dns.IsSubDomain(zone.wire, n.wire)
}

// LabelCount returns the number of labels (root has zero).
func (n Name) LabelCount() int {
	if n.IsRoot() {
		return 0
	}
	return dns.CountLabel(n.wire)
}

// byCanonicalOrder implements sort.Interface over a slice of Name,
// grounded on the teacher's Owners sort.Interface (tdns/dnsutils.go)
// which is fed to github.com/twotwotwo/sorts.Quicksort.
type byCanonicalOrder []Name

func (s byCanonicalOrder) Len() int           { return len(s) }
func (s byCanonicalOrder) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s byCanonicalOrder) Less(i, j int) bool { return s[i].Compare(s[j]) < 0 }
