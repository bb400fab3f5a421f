/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import (
	"sort"
	"testing"
)

func TestNewNameCaseInsensitiveEquality(t *testing.T) {
	a := NewName("WWW.Example.COM")
	b := NewName("www.example.com.")
	if !a.Equal(b) {
		t.Errorf("%q and %q should compare equal", a, b)
	}
	if a.String() != "WWW.Example.COM." {
		t.Errorf("wire form = %q, want original case preserved with trailing dot", a.String())
	}
}

func TestNameParent(t *testing.T) {
	n := NewName("www.example.com.")
	p, ok := n.Parent()
	if !ok || p.String() != "example.com." {
		t.Fatalf("Parent() = %q, %v; want example.com., true", p, ok)
	}
	root := NewName(".")
	if _, ok := root.Parent(); ok {
		t.Errorf("root should have no parent")
	}
}

func TestNameIsSubdomainOf(t *testing.T) {
	zone := NewName("example.com.")
	if !NewName("www.example.com.").IsSubdomainOf(zone) {
		t.Errorf("www.example.com. should be a subdomain of example.com.")
	}
	if !zone.IsSubdomainOf(zone) {
		t.Errorf("a zone should be considered a subdomain of itself")
	}
	if NewName("example.net.").IsSubdomainOf(zone) {
		t.Errorf("example.net. should not be a subdomain of example.com.")
	}
}

func TestCanonicalOrder(t *testing.T) {
	names := []Name{
		NewName("b.example.com."),
		NewName("a.example.com."),
		NewName("example.com."),
		NewName("z.a.example.com."),
	}
	sort.Sort(byCanonicalOrder(names))

	want := []string{"example.com.", "a.example.com.", "z.a.example.com.", "b.example.com."}
	for i, w := range want {
		if names[i].String() != w {
			t.Errorf("position %d = %q, want %q", i, names[i], w)
		}
	}
}

func TestLabelCount(t *testing.T) {
	if got := NewName(".").LabelCount(); got != 0 {
		t.Errorf("root label count = %d, want 0", got)
	}
	if got := NewName("www.example.com.").LabelCount(); got != 3 {
		t.Errorf("label count = %d, want 3", got)
	}
}
