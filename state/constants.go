package state

import "time"

const (
	// MaxDatagram is the largest frame a neighbour socket carries,
	// one JSON message per datagram.
	MaxDatagram = 65535
)

var (
	DispatchQueueLen = 128
	// WarnThrottle bounds how often malformed frames from a single
	// neighbour are logged.
	WarnThrottle = time.Second * 5

	DBG_log_frames      = false
	DBG_log_route_table = false
)
