package core

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"path/filepath"

	"github.com/encodeous/mylar/perf"
	"github.com/encodeous/mylar/state"
	"golang.org/x/sys/unix"
)

// SockMgr owns the duplex channel to each neighbour: one unixpacket
// connection per peering, dialed at startup, whose socket path is the
// neighbour's address in dotted-quad form. One JSON message travels
// per datagram.
type SockMgr struct {
	conns map[state.Addr]*net.UnixConn
}

func (m *SockMgr) Init(s *state.State) error {
	s.Log.Debug("init sockets", "dir", s.SocketDir)
	m.conns = make(map[state.Addr]*net.UnixConn)
	for _, n := range s.RouterState.Neighbours {
		sockPath := filepath.Join(s.SocketDir, n.Addr.String())
		conn, err := net.DialUnix("unixpacket", nil, &net.UnixAddr{Name: sockPath, Net: "unixpacket"})
		if err != nil {
			return fmt.Errorf("dial neighbour %s: %w", n.Addr, err)
		}
		if err := setSockBuffers(conn); err != nil {
			s.Log.Warn("failed to size socket buffers", "neighbour", n.Addr, "error", err)
		}
		m.conns[n.Addr] = conn
		go m.readLoop(s.Env, n.Addr, conn)
	}
	return nil
}

func (m *SockMgr) Cleanup(s *state.State) error {
	for _, conn := range m.conns {
		_ = conn.Close()
	}
	m.conns = nil
	return nil
}

// readLoop receives one datagram at a time and hands it to the main
// loop. A read error or an empty datagram means the neighbour shut
// down, which tears the whole router down.
func (m *SockMgr) readLoop(env *state.Env, from state.Addr, conn *net.UnixConn) {
	buf := make([]byte, state.MaxDatagram)
	for {
		n, err := conn.Read(buf)
		if err != nil || n == 0 {
			if err == nil {
				err = io.EOF
			}
			env.Cancel(fmt.Errorf("channel to %s closed: %w", from, err))
			return
		}
		frame := bytes.Clone(buf[:n])
		env.Dispatch(func(s *state.State) error {
			return Get[*MylarRouter](s).HandleFrame(s, from, frame)
		})
	}
}

// Send writes one frame to a neighbour. Sends are best-effort; a
// failed send drops the frame without logging it.
func (m *SockMgr) Send(neigh state.Addr, frame []byte) {
	conn, ok := m.conns[neigh]
	if !ok {
		return
	}
	perf.SentFramesPerSecond.Add(1)
	perf.SentBytesPerSecond.Add(float64(len(frame)))
	if _, err := conn.Write(frame); err != nil {
		// best-effort, the read side notices a dead channel
		return
	}
}

// setSockBuffers sizes both socket buffers to the largest datagram
// the protocol allows.
func setSockBuffers(conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, state.MaxDatagram); e != nil {
			serr = e
			return
		}
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, state.MaxDatagram)
	})
	if err != nil {
		return err
	}
	return serr
}
