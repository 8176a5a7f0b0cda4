package core

import (
	"cmp"
	"slices"

	"github.com/encodeous/mylar/state"
)

type RouterEvent int

// trace events

const (
	RouteLearned RouterEvent = iota
	RouteRevoked
	PacketForwarded
)

// warn events

const (
	NoRouteFound RouterEvent = iota + 1000
	PolicyDenied
)

func (e RouterEvent) String() string {
	switch e {
	case RouteLearned:
		return "ROUTE_LEARNED"
	case RouteRevoked:
		return "ROUTE_REVOKED"
	case PacketForwarded:
		return "PACKET_FORWARDED"
	case NoRouteFound:
		return "NO_ROUTE"
	case PolicyDenied:
		return "POLICY_DENIED"
	default:
		return "UNKNOWN"
	}
}

// Router is an interface that defines the underlying router I/O operations
type Router interface {
	SendUpdate(neigh state.Addr, m state.UpdateMsg)
	SendRevoke(neigh state.Addr, w []state.Withdrawal)
	SendData(neigh state.Addr, frame []byte)
	SendNoRoute(ingress state.Addr, dst state.Addr)
	SendTable(neigh state.Addr, src, dst state.Addr, entries []state.TableEntry)
	Log(event RouterEvent, desc string, args ...any)
}

// entryFromUpdate builds the route entry for a raw inbound update,
// prepending the local AS to the path. History stores the raw
// message, so replaying applies the same augmentation exactly once
// and rebuilds are idempotent.
func entryFromUpdate(asn uint32, from state.Addr, m *state.UpdateMsg) *state.Route {
	path := make([]uint32, 0, len(m.ASPath)+1)
	path = append(path, asn)
	path = append(path, m.ASPath...)
	return &state.Route{
		Network:    m.Network,
		Netmask:    m.Netmask,
		Peer:       from,
		Localpref:  m.Localpref,
		SelfOrigin: m.SelfOrigin,
		ASPath:     path,
		Origin:     m.Origin,
	}
}

// HandleUpdate ingests an update announcement from a neighbour:
// record it, insert the entry, coalesce, and fan out to the
// neighbours the policy permits.
func HandleUpdate(s *state.RouterState, r Router, from state.Addr, m *state.UpdateMsg) {
	s.History = append(s.History, state.Announcement{From: from, Type: state.MsgUpdate, Update: m})

	entry := entryFromUpdate(s.ASN, from, m)
	s.Table.Insert(entry)
	s.Table.Coalesce()
	r.Log(RouteLearned, "learned route", "route", entry)

	// the on-wire path carries the local AS exactly once, the same
	// augmentation as the stored entry
	out := *m
	out.ASPath = slices.Clone(entry.ASPath)
	for _, n := range propagationTargets(s, from) {
		r.SendUpdate(n.Addr, out)
	}
}

// HandleRevoke ingests a revocation. Coalescing may have merged the
// withdrawn prefix into a larger entry, so the table is rebuilt by
// replaying history rather than by inverse bookkeeping.
func HandleRevoke(s *state.RouterState, r Router, from state.Addr, w []state.Withdrawal) {
	s.History = append(s.History, state.Announcement{From: from, Type: state.MsgRevoke, Withdrawals: w})

	s.Table = Replay(s.ASN, s.History)
	s.Table.Coalesce()
	r.Log(RouteRevoked, "revoked routes", "from", from, "withdrawn", len(w))

	for _, n := range propagationTargets(s, from) {
		r.SendRevoke(n.Addr, w)
	}
}

// Replay folds the announcement history into a fresh table: every
// update inserts its entry, every revoke removes the exact
// (network, netmask, sender) triples it names. The caller coalesces
// the result.
func Replay(asn uint32, hist []state.Announcement) *state.RouteTable {
	t := state.NewRouteTable()
	for _, a := range hist {
		switch a.Type {
		case state.MsgUpdate:
			t.Insert(entryFromUpdate(asn, a.From, a.Update))
		case state.MsgRevoke:
			for _, wd := range a.Withdrawals {
				t.RemoveMatching(wd.Network, wd.Netmask, a.From)
			}
		}
	}
	return t
}

// HandleData forwards one data packet: longest-prefix lookup, the
// selection cascade, then policy. The frame is forwarded verbatim;
// on failure the source gets a no route reply.
func HandleData(s *state.RouterState, r Router, from state.Addr, env *state.Envelope, frame []byte) {
	candidates := s.Table.Lookup(env.Dst)
	if len(candidates) == 0 {
		r.Log(NoRouteFound, "no route", "dst", env.Dst)
		r.SendNoRoute(from, env.Src)
		return
	}
	best := SelectBest(candidates)
	in := s.GetNeighbour(from)
	egress := s.GetNeighbour(best.Peer)
	if !Permitted(in.Relation, egress.Relation) {
		r.Log(PolicyDenied, "policy denied", "dst", env.Dst, "ingress", from, "egress", best.Peer)
		r.SendNoRoute(from, env.Src)
		return
	}
	r.Log(PacketForwarded, "forwarded", "dst", env.Dst, "via", best.Peer)
	r.SendData(best.Peer, frame)
}

// SelectBest runs the tie-break cascade over a non-empty candidate
// set. Every stage keeps its extremum, so no stage can empty the
// set, and the final lowest-neighbour-address rule is a total order
// over distinct neighbours.
func SelectBest(candidates []*state.Route) *state.Route {
	// highest localpref
	best := slices.MaxFunc(candidates, func(a, b *state.Route) int {
		return cmp.Compare(a.Localpref, b.Localpref)
	})
	candidates = keep(candidates, func(r *state.Route) bool { return r.Localpref == best.Localpref })

	// self-originated preferred
	if slices.ContainsFunc(candidates, func(r *state.Route) bool { return r.SelfOrigin }) {
		candidates = keep(candidates, func(r *state.Route) bool { return r.SelfOrigin })
	}

	// shortest AS path
	shortest := slices.MinFunc(candidates, func(a, b *state.Route) int {
		return cmp.Compare(len(a.ASPath), len(b.ASPath))
	})
	candidates = keep(candidates, func(r *state.Route) bool { return len(r.ASPath) == len(shortest.ASPath) })

	// best origin, IGP > EGP > UNK
	bestOrigin := slices.MinFunc(candidates, func(a, b *state.Route) int {
		return cmp.Compare(a.Origin.Rank(), b.Origin.Rank())
	})
	candidates = keep(candidates, func(r *state.Route) bool { return r.Origin.Rank() == bestOrigin.Origin.Rank() })

	// lowest neighbour address
	return slices.MinFunc(candidates, func(a, b *state.Route) int {
		return cmp.Compare(a.Peer, b.Peer)
	})
}

func keep(rs []*state.Route, f func(*state.Route) bool) []*state.Route {
	out := make([]*state.Route, 0, len(rs))
	for _, r := range rs {
		if f(r) {
			out = append(out, r)
		}
	}
	return out
}

// HandleDump answers a dump request with the current post-coalesce
// table, src and dst swapped from the request.
func HandleDump(s *state.RouterState, r Router, from state.Addr, env *state.Envelope) {
	entries := make([]state.TableEntry, 0, s.Table.Len())
	for _, route := range s.Table.Entries() {
		entries = append(entries, state.TableEntry{
			Network: route.Network,
			Netmask: route.Netmask,
			Peer:    route.Peer,
		})
	}
	r.SendTable(from, env.Dst, env.Src, entries)
}
