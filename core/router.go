package core

import (
	"github.com/encodeous/mylar/perf"
	"github.com/encodeous/mylar/state"
	"github.com/jellydator/ttlcache/v3"
)

// MylarRouter drives the protocol handlers from inbound frames and
// carries them out over the neighbour sockets.
type MylarRouter struct {
	*state.State
	// warnThrottle limits malformed-frame warnings to one per
	// neighbour per window
	warnThrottle *ttlcache.Cache[state.Addr, struct{}]
}

func (r *MylarRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	r.warnThrottle = ttlcache.New[state.Addr, struct{}](
		ttlcache.WithTTL[state.Addr, struct{}](state.WarnThrottle),
		ttlcache.WithDisableTouchOnHit[state.Addr, struct{}](),
	)

	s.RouterState = &state.RouterState{
		ASN:   s.LocalCfg.ASN,
		Table: state.NewRouteTable(),
	}
	for _, n := range s.LocalCfg.Neighbors {
		s.RouterState.Neighbours = append(s.RouterState.Neighbours, &state.Neighbour{
			Addr:       n.Addr,
			Relation:   n.Relation,
			RouterAddr: n.Addr.RouterSide(),
		})
		s.Log.Info("neighbour", "addr", n.Addr, "relation", n.Relation, "local", n.Addr.RouterSide())
	}
	return nil
}

func (r *MylarRouter) Cleanup(s *state.State) error {
	r.warnThrottle.DeleteAll()
	r.State = nil
	return nil
}

// HandleFrame demultiplexes one inbound frame by its type field. All
// recoverable errors are absorbed here; unknown types are dropped
// without complaint.
func (r *MylarRouter) HandleFrame(s *state.State, from state.Addr, frame []byte) error {
	perf.RecvFramesPerSecond.Add(1)
	if state.DBG_log_frames {
		s.Log.Debug("recv", "from", from, "frame", string(frame))
	}

	env, err := state.ParseEnvelope(frame)
	if err != nil {
		r.warnFrame(from, err)
		return nil
	}

	switch env.Type {
	case state.MsgUpdate:
		m, err := state.DecodeUpdate(env.Msg)
		if err != nil {
			r.warnFrame(from, err)
			return nil
		}
		HandleUpdate(s.RouterState, r, from, m)
	case state.MsgRevoke:
		w, err := state.DecodeRevoke(env.Msg)
		if err != nil {
			r.warnFrame(from, err)
			return nil
		}
		HandleRevoke(s.RouterState, r, from, w)
	case state.MsgData:
		HandleData(s.RouterState, r, from, env, frame)
	case state.MsgDump:
		HandleDump(s.RouterState, r, from, env)
	}

	if state.DBG_log_route_table {
		s.Log.Debug(s.StringTable())
	}
	return nil
}

func (r *MylarRouter) warnFrame(from state.Addr, err error) {
	if r.warnThrottle.Get(from) != nil {
		return
	}
	r.warnThrottle.Set(from, struct{}{}, ttlcache.DefaultTTL)
	r.Env.Log.Warn("dropping bad frame", "from", from, "error", err)
}

func (r *MylarRouter) sendFrame(neigh state.Addr, frame []byte) {
	Get[*SockMgr](r.State).Send(neigh, frame)
}

func (r *MylarRouter) SendUpdate(neigh state.Addr, m state.UpdateMsg) {
	n := r.RouterState.GetNeighbour(neigh)
	frame, err := state.Encode(n.RouterAddr, neigh, state.MsgUpdate, m)
	if err != nil {
		r.Env.Log.Error("encode update", "error", err)
		return
	}
	r.sendFrame(neigh, frame)
}

func (r *MylarRouter) SendRevoke(neigh state.Addr, w []state.Withdrawal) {
	n := r.RouterState.GetNeighbour(neigh)
	frame, err := state.Encode(n.RouterAddr, neigh, state.MsgRevoke, w)
	if err != nil {
		r.Env.Log.Error("encode revoke", "error", err)
		return
	}
	r.sendFrame(neigh, frame)
}

func (r *MylarRouter) SendData(neigh state.Addr, frame []byte) {
	r.sendFrame(neigh, frame)
}

func (r *MylarRouter) SendNoRoute(ingress state.Addr, dst state.Addr) {
	perf.NoRouteReplies.Add(1)
	n := r.RouterState.GetNeighbour(ingress)
	frame, err := state.Encode(n.RouterAddr, dst, state.MsgNoRoute, struct{}{})
	if err != nil {
		r.Env.Log.Error("encode no route", "error", err)
		return
	}
	r.sendFrame(ingress, frame)
}

func (r *MylarRouter) SendTable(neigh state.Addr, src, dst state.Addr, entries []state.TableEntry) {
	frame, err := state.Encode(src, dst, state.MsgTable, entries)
	if err != nil {
		r.Env.Log.Error("encode table", "error", err)
		return
	}
	r.sendFrame(neigh, frame)
}

func (r *MylarRouter) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0, len(args)+2)
	x = append(x, "event", event.String())
	x = append(x, args...)
	r.Env.Log.Debug(desc, x...)
}
