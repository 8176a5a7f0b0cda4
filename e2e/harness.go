//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/encodeous/mylar/core"
	"github.com/encodeous/mylar/state"
)

const (
	AcceptTimeout = 5 * time.Second
	RecvTimeout   = 2 * time.Second
	StopTimeout   = 5 * time.Second
)

// Harness runs one router in-process and plays its neighbours: one
// unixpacket listener per neighbour in a temp dir, accepted once the
// router dials in.
type Harness struct {
	t     *testing.T
	Dir   string
	Errs  chan error
	conns map[string]*net.UnixConn
	lns   map[string]*net.UnixListener
}

// NewHarness starts a router with the given asn and neighbours, each
// <ipv4>-<relation>, and waits until every channel is connected.
func NewHarness(t *testing.T, asn uint32, neighbours ...string) *Harness {
	t.Helper()
	h := &Harness{
		t:     t,
		Dir:   t.TempDir(),
		Errs:  make(chan error, 1),
		conns: make(map[string]*net.UnixConn),
		lns:   make(map[string]*net.UnixListener),
	}

	cfg := state.LocalCfg{
		ASN:       asn,
		SocketDir: h.Dir,
	}
	for _, arg := range neighbours {
		n, err := state.ParseNeighborArg(arg)
		if err != nil {
			t.Fatal(err)
		}
		cfg.Neighbors = append(cfg.Neighbors, n)

		sockPath := filepath.Join(h.Dir, n.Addr.String())
		ln, err := net.ListenUnix("unixpacket", &net.UnixAddr{Name: sockPath, Net: "unixpacket"})
		if err != nil {
			t.Fatal(err)
		}
		h.lns[n.Addr.String()] = ln
	}

	go func() {
		h.Errs <- core.Start(cfg, slog.LevelDebug)
	}()

	for name, ln := range h.lns {
		if err := ln.SetDeadline(time.Now().Add(AcceptTimeout)); err != nil {
			t.Fatal(err)
		}
		conn, err := ln.AcceptUnix()
		if err != nil {
			t.Fatalf("router never dialed neighbour %s: %v", name, err)
		}
		h.conns[name] = conn
	}

	t.Cleanup(h.Stop)
	return h
}

// Send writes one frame on the named neighbour's channel.
func (h *Harness) Send(neighbour, frame string) {
	h.t.Helper()
	if _, err := h.conns[neighbour].Write([]byte(frame)); err != nil {
		h.t.Fatal(err)
	}
}

// Recv reads one frame at the named neighbour.
func (h *Harness) Recv(neighbour string) []byte {
	h.t.Helper()
	conn := h.conns[neighbour]
	if err := conn.SetReadDeadline(time.Now().Add(RecvTimeout)); err != nil {
		h.t.Fatal(err)
	}
	buf := make([]byte, state.MaxDatagram)
	n, err := conn.Read(buf)
	if err != nil {
		h.t.Fatalf("no frame arrived at %s: %v", neighbour, err)
	}
	return buf[:n]
}

// RecvEnvelope reads one frame and decodes its envelope.
func (h *Harness) RecvEnvelope(neighbour string) *state.Envelope {
	h.t.Helper()
	env, err := state.ParseEnvelope(h.Recv(neighbour))
	if err != nil {
		h.t.Fatal(err)
	}
	return env
}

// ExpectSilence asserts that no frame arrives at the named neighbour
// within a short window.
func (h *Harness) ExpectSilence(neighbour string) {
	h.t.Helper()
	conn := h.conns[neighbour]
	if err := conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)); err != nil {
		h.t.Fatal(err)
	}
	buf := make([]byte, state.MaxDatagram)
	n, err := conn.Read(buf)
	if err == nil {
		h.t.Fatalf("unexpected frame at %s: %s", neighbour, buf[:n])
	}
}

// Update builds an update frame from a neighbour.
func Update(src string, network, netmask string, localpref uint32, selfOrigin bool, path []uint32, origin state.Origin) string {
	body, _ := json.Marshal(state.UpdateMsg{
		Network:    state.MustParseAddr(network),
		Netmask:    state.MustParseMask(netmask),
		Localpref:  localpref,
		SelfOrigin: selfOrigin,
		ASPath:     path,
		Origin:     origin,
	})
	return envelope(src, state.MustParseAddr(src).RouterSide().String(), state.MsgUpdate, string(body))
}

// Revoke builds a revoke frame from a neighbour.
func Revoke(src string, withdrawals ...string) string {
	w := make([]state.Withdrawal, 0, len(withdrawals))
	for i := 0; i+1 < len(withdrawals); i += 2 {
		w = append(w, state.Withdrawal{
			Network: state.MustParseAddr(withdrawals[i]),
			Netmask: state.MustParseMask(withdrawals[i+1]),
		})
	}
	body, _ := json.Marshal(w)
	return envelope(src, state.MustParseAddr(src).RouterSide().String(), state.MsgRevoke, string(body))
}

// Dump builds a dump request from a neighbour.
func Dump(src string) string {
	return envelope(src, state.MustParseAddr(src).RouterSide().String(), state.MsgDump, "{}")
}

// Data builds a data frame with an opaque payload.
func Data(src, dst string) string {
	return envelope(src, dst, state.MsgData, `"ping"`)
}

func envelope(src, dst, msgType, msg string) string {
	return fmt.Sprintf(`{"src":%q,"dst":%q,"type":%q,"msg":%s}`, src, dst, msgType, msg)
}

// Stop tears the router down by closing the neighbour channels and
// waits for the main loop to exit.
func (h *Harness) Stop() {
	for _, conn := range h.conns {
		_ = conn.Close()
	}
	for _, ln := range h.lns {
		_ = ln.Close()
	}
	select {
	case <-h.Errs:
	case <-time.After(StopTimeout):
		h.t.Error("router did not stop in time")
	}
}
