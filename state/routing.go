package state

import (
	"fmt"
	"slices"
	"strings"
)

// Neighbour holds the fixed per-peering metadata. The set is built
// at startup and never changes.
type Neighbour struct {
	Addr     Addr
	Relation Relation
	// RouterAddr is our address on this link, the neighbour address
	// with the final octet replaced by 1.
	RouterAddr Addr
}

// Announcement is one raw inbound update or revoke, tagged with its
// arrival neighbour. History is append-only for the process lifetime
// so revocations can be resolved by replay.
type Announcement struct {
	From        Addr
	Type        string // MsgUpdate or MsgRevoke
	Update      *UpdateMsg
	Withdrawals []Withdrawal
}

// Route is one entry of the route table.
type Route struct {
	Network    Addr
	Netmask    Mask
	Peer       Addr // the neighbour the route was learned from
	Localpref  uint32
	SelfOrigin bool
	ASPath     []uint32
	Origin     Origin
}

// sameAttrs reports whether two entries agree on everything except
// the prefix, the precondition for coalescing them.
func (r *Route) sameAttrs(o *Route) bool {
	return r.Peer == o.Peer &&
		r.Localpref == o.Localpref &&
		r.SelfOrigin == o.SelfOrigin &&
		r.Origin == o.Origin &&
		slices.Equal(r.ASPath, o.ASPath)
}

func (r *Route) String() string {
	return fmt.Sprintf("%s/%d via %s (lp: %d, self: %v, path: %v, origin: %s)",
		r.Network, r.Netmask.PrefixLen(), r.Peer, r.Localpref, r.SelfOrigin, r.ASPath, r.Origin)
}

// RouterState is the full protocol state. It must only be accessed
// from the main loop.
type RouterState struct {
	ASN        uint32
	Neighbours []*Neighbour
	History    []Announcement
	Table      *RouteTable
}

func (s *RouterState) GetNeighbour(addr Addr) *Neighbour {
	nIdx := slices.IndexFunc(s.Neighbours, func(neighbour *Neighbour) bool {
		return neighbour.Addr == addr
	})
	if nIdx == -1 {
		return nil
	}
	return s.Neighbours[nIdx]
}

func (s *RouterState) StringTable() string {
	sb := strings.Builder{}
	sb.WriteString("Route Table:\n")
	rt := make([]string, 0)
	for _, r := range s.Table.Entries() {
		rt = append(rt, fmt.Sprintf(" - %s", r))
	}
	if len(rt) == 0 {
		rt = append(rt, " (none)")
	}
	slices.Sort(rt)
	sb.WriteString(strings.Join(rt, "\n"))
	return sb.String()
}
