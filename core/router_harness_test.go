package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/mylar/state"
	"github.com/google/go-cmp/cmp"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records the I/O the protocol handlers request instead
// of performing it.
type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) SendUpdate(neigh state.Addr, m state.UpdateMsg) {
	h.actions = append(h.actions, MakeEvent("SEND_UPDATE", neigh, m))
}

func (h *RouterHarness) SendRevoke(neigh state.Addr, w []state.Withdrawal) {
	h.actions = append(h.actions, MakeEvent("SEND_REVOKE", neigh, w))
}

func (h *RouterHarness) SendData(neigh state.Addr, frame []byte) {
	h.actions = append(h.actions, MakeEvent("SEND_DATA", neigh, string(frame)))
}

func (h *RouterHarness) SendNoRoute(ingress state.Addr, dst state.Addr) {
	h.actions = append(h.actions, MakeEvent("SEND_NO_ROUTE", ingress, dst))
}

func (h *RouterHarness) SendTable(neigh state.Addr, src, dst state.Addr, entries []state.TableEntry) {
	h.actions = append(h.actions, MakeEvent("SEND_TABLE", neigh, src, dst, entries))
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

func (h *RouterHarness) GetActions() HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message != "LOG" {
			x = append(x, action)
		}
	}

	h.actions = make([]HarnessEvent, 0)
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

// MakeRouterState builds a state with the given neighbours, each
// described as <ipv4>-<relation>.
func MakeRouterState(t *testing.T, asn uint32, neighbours ...string) *state.RouterState {
	t.Helper()
	rs := &state.RouterState{
		ASN:   asn,
		Table: state.NewRouteTable(),
	}
	for _, n := range neighbours {
		cfg, err := state.ParseNeighborArg(n)
		if err != nil {
			t.Fatal(err)
		}
		rs.Neighbours = append(rs.Neighbours, &state.Neighbour{
			Addr:       cfg.Addr,
			Relation:   cfg.Relation,
			RouterAddr: cfg.Addr.RouterSide(),
		})
	}
	return rs
}

func MakeUpdate(network, netmask string, localpref uint32, selfOrigin bool, path []uint32, origin state.Origin) *state.UpdateMsg {
	return &state.UpdateMsg{
		Network:    state.MustParseAddr(network),
		Netmask:    state.MustParseMask(netmask),
		Localpref:  localpref,
		SelfOrigin: selfOrigin,
		ASPath:     path,
		Origin:     origin,
	}
}

func MakeDataEnv(src, dst string) *state.Envelope {
	return &state.Envelope{
		Src:  state.MustParseAddr(src),
		Dst:  state.MustParseAddr(dst),
		Type: state.MsgData,
	}
}
