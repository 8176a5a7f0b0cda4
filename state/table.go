package state

import (
	"net/netip"
	"slices"

	"github.com/gaissmai/bart"
)

// RouteTable is the ordered set of route entries. The entry slice is
// the source of truth; a bart table compiled from it serves
// longest-prefix lookups. Entries are derived state, freely replaced
// by a rebuild from history.
type RouteTable struct {
	entries []*Route
	index   bart.Table[[]*Route]
}

func NewRouteTable() *RouteTable {
	return &RouteTable{}
}

func (t *RouteTable) Len() int {
	return len(t.entries)
}

func (t *RouteTable) Entries() []*Route {
	return slices.Clone(t.entries)
}

// Insert appends without deduplication. Callers feed the table from
// history, so duplicate resistance is a coalescing concern.
func (t *RouteTable) Insert(r *Route) {
	t.entries = append(t.entries, r)
	t.rebuildIndex()
}

// RemoveMatching removes every entry with the exact
// (network, netmask, peer) triple and returns how many were removed.
func (t *RouteTable) RemoveMatching(network Addr, netmask Mask, peer Addr) int {
	before := len(t.entries)
	t.entries = slices.DeleteFunc(t.entries, func(r *Route) bool {
		return r.Network == network && r.Netmask == netmask && r.Peer == peer
	})
	removed := before - len(t.entries)
	if removed > 0 {
		t.rebuildIndex()
	}
	return removed
}

// Lookup returns the entries tied for the longest prefix matching
// addr, or nil if none match.
func (t *RouteTable) Lookup(addr Addr) []*Route {
	candidates, ok := t.index.Lookup(addr.NetipAddr())
	if !ok {
		return nil
	}
	return slices.Clone(candidates)
}

// adjacent reports whether a and b differ only in the final bit of
// their (equal) netmasks, with all path attributes equal.
func adjacent(a, b *Route) bool {
	if a.Netmask != b.Netmask || a.Netmask == 0 {
		return false
	}
	if !a.sameAttrs(b) {
		return false
	}
	short := a.Netmask.Shorten()
	return a.Network.Masked(a.Netmask) != b.Network.Masked(b.Netmask) &&
		a.Network.Masked(short) == b.Network.Masked(short)
}

// merge combines an adjacent pair into the covering entry, keeping
// the common attributes and clearing the final mask bit of the
// network.
func merge(a, b *Route) *Route {
	short := a.Netmask.Shorten()
	return &Route{
		Network:    a.Network.Masked(short),
		Netmask:    short,
		Peer:       a.Peer,
		Localpref:  a.Localpref,
		SelfOrigin: a.SelfOrigin,
		ASPath:     slices.Clone(a.ASPath),
		Origin:     a.Origin,
	}
}

// Coalesce merges adjacent pairs until none remain. Each pass
// rebuilds the entry list rather than mutating it mid-iteration;
// every merge strictly shrinks the table, so the loop terminates at
// the same fixed point regardless of merge order.
func (t *RouteTable) Coalesce() {
	for {
		merged := false
		for i := 0; i < len(t.entries) && !merged; i++ {
			for j := i + 1; j < len(t.entries); j++ {
				if adjacent(t.entries[i], t.entries[j]) {
					next := make([]*Route, 0, len(t.entries)-1)
					for k, r := range t.entries {
						if k != i && k != j {
							next = append(next, r)
						}
					}
					t.entries = append(next, merge(t.entries[i], t.entries[j]))
					merged = true
					break
				}
			}
		}
		if !merged {
			break
		}
	}
	t.rebuildIndex()
}

func (t *RouteTable) rebuildIndex() {
	groups := make(map[netip.Prefix][]*Route)
	for _, r := range t.entries {
		pfx := Prefix(r.Network, r.Netmask)
		groups[pfx] = append(groups[pfx], r)
	}
	t.index = bart.Table[[]*Route]{}
	for pfx, rs := range groups {
		t.index.Insert(pfx, rs)
	}
}
