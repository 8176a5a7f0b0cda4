package state

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func mkRoute(network, mask, peer string) *Route {
	return &Route{
		Network:    MustParseAddr(network),
		Netmask:    MustParseMask(mask),
		Peer:       MustParseAddr(peer),
		Localpref:  100,
		SelfOrigin: false,
		ASPath:     []uint32{1, 2},
		Origin:     OriginEGP,
	}
}

func TestLookupLongestPrefix(t *testing.T) {
	tbl := NewRouteTable()
	a := mkRoute("10.0.0.0", "255.0.0.0", "192.168.1.2")
	b := mkRoute("10.1.0.0", "255.255.0.0", "192.168.2.2")
	tbl.Insert(a)
	tbl.Insert(b)

	got := tbl.Lookup(MustParseAddr("10.1.2.3"))
	if len(got) != 1 || got[0] != b {
		t.Errorf("expected the /16 entry, got %v", got)
	}

	got = tbl.Lookup(MustParseAddr("10.2.0.1"))
	if len(got) != 1 || got[0] != a {
		t.Errorf("expected the /8 entry, got %v", got)
	}

	if got = tbl.Lookup(MustParseAddr("11.0.0.1")); got != nil {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestLookupTiedCandidates(t *testing.T) {
	tbl := NewRouteTable()
	a := mkRoute("10.0.0.0", "255.0.0.0", "192.168.1.2")
	b := mkRoute("10.0.0.0", "255.0.0.0", "192.168.2.2")
	tbl.Insert(a)
	tbl.Insert(b)

	got := tbl.Lookup(MustParseAddr("10.9.9.9"))
	assert.Len(t, got, 2, "both peers tie for the longest prefix")
}

func TestRemoveMatching(t *testing.T) {
	tbl := NewRouteTable()
	tbl.Insert(mkRoute("10.0.0.0", "255.255.0.0", "192.168.1.2"))
	tbl.Insert(mkRoute("10.0.0.0", "255.255.0.0", "192.168.2.2"))
	tbl.Insert(mkRoute("10.0.0.0", "255.255.0.0", "192.168.1.2"))

	removed := tbl.RemoveMatching(MustParseAddr("10.0.0.0"), MustParseMask("255.255.0.0"), MustParseAddr("192.168.1.2"))
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if tbl.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", tbl.Len())
	}
	if tbl.Entries()[0].Peer != MustParseAddr("192.168.2.2") {
		t.Errorf("removed the wrong peer's entry")
	}

	// lookup must no longer surface the removed entries
	got := tbl.Lookup(MustParseAddr("10.0.1.1"))
	assert.Len(t, got, 1)
}

func TestCoalesceAdjacentPair(t *testing.T) {
	tbl := NewRouteTable()
	tbl.Insert(mkRoute("192.0.0.0", "255.255.255.0", "192.168.1.2"))
	tbl.Insert(mkRoute("192.0.1.0", "255.255.255.0", "192.168.1.2"))
	tbl.Coalesce()

	entries := tbl.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after coalesce, got %d", len(entries))
	}
	got := entries[0]
	assert.Equal(t, MustParseAddr("192.0.0.0"), got.Network)
	assert.Equal(t, MustParseMask("255.255.254.0"), got.Netmask)
	assert.Equal(t, MustParseAddr("192.168.1.2"), got.Peer)
}

func TestCoalesceCascades(t *testing.T) {
	// four adjacent /24s collapse all the way to a /22
	tbl := NewRouteTable()
	for _, n := range []string{"192.0.0.0", "192.0.1.0", "192.0.2.0", "192.0.3.0"} {
		tbl.Insert(mkRoute(n, "255.255.255.0", "192.168.1.2"))
	}
	tbl.Coalesce()

	entries := tbl.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	assert.Equal(t, MustParseMask("255.255.252.0"), entries[0].Netmask)
	assert.Equal(t, MustParseAddr("192.0.0.0"), entries[0].Network)
}

func TestCoalesceRequiresEqualAttributes(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Route)
	}{
		{"different peer", func(r *Route) { r.Peer = MustParseAddr("192.168.9.2") }},
		{"different localpref", func(r *Route) { r.Localpref = 200 }},
		{"different selfOrigin", func(r *Route) { r.SelfOrigin = true }},
		{"different path", func(r *Route) { r.ASPath = []uint32{1, 3} }},
		{"different origin", func(r *Route) { r.Origin = OriginIGP }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tbl := NewRouteTable()
			a := mkRoute("192.0.0.0", "255.255.255.0", "192.168.1.2")
			b := mkRoute("192.0.1.0", "255.255.255.0", "192.168.1.2")
			c.mutate(b)
			tbl.Insert(a)
			tbl.Insert(b)
			tbl.Coalesce()
			if tbl.Len() != 2 {
				t.Errorf("entries with differing attributes must not merge")
			}
		})
	}
}

func TestCoalesceIgnoresNonSiblings(t *testing.T) {
	// 192.0.1.0/24 and 192.0.2.0/24 differ in more than the final
	// mask bit and must not merge
	tbl := NewRouteTable()
	tbl.Insert(mkRoute("192.0.1.0", "255.255.255.0", "192.168.1.2"))
	tbl.Insert(mkRoute("192.0.2.0", "255.255.255.0", "192.168.1.2"))
	tbl.Coalesce()
	if tbl.Len() != 2 {
		t.Errorf("non-sibling prefixes must not merge")
	}
}

func TestCoalesceIdempotent(t *testing.T) {
	tbl := NewRouteTable()
	tbl.Insert(mkRoute("192.0.0.0", "255.255.255.0", "192.168.1.2"))
	tbl.Insert(mkRoute("192.0.1.0", "255.255.255.0", "192.168.1.2"))
	tbl.Insert(mkRoute("10.0.0.0", "255.0.0.0", "192.168.2.2"))

	tbl.Coalesce()
	once := tbl.Entries()
	tbl.Coalesce()
	twice := tbl.Entries()

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("coalesce must be idempotent (-once +twice):\n%s", diff)
	}
}

func TestCoalesceCoverageEquivalence(t *testing.T) {
	// the merged entry must match exactly the union of what the
	// original pair matched
	a := mkRoute("192.0.0.0", "255.255.255.0", "192.168.1.2")
	b := mkRoute("192.0.1.0", "255.255.255.0", "192.168.1.2")
	tbl := NewRouteTable()
	tbl.Insert(a)
	tbl.Insert(b)
	tbl.Coalesce()
	c := tbl.Entries()[0]

	probe := []string{
		"192.0.0.0", "192.0.0.255", "192.0.1.0", "192.0.1.255",
		"192.0.2.0", "191.255.255.255", "192.0.0.128", "0.0.0.0",
	}
	for _, p := range probe {
		addr := MustParseAddr(p)
		union := Match(addr, a.Network, a.Netmask) || Match(addr, b.Network, b.Netmask)
		merged := Match(addr, c.Network, c.Netmask)
		if union != merged {
			t.Errorf("%s: pair coverage %v, merged coverage %v", p, union, merged)
		}
	}
}
