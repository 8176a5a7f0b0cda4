package state

import (
	"fmt"
	"strings"
)

// Relation is the commercial relationship with a neighbour, as seen
// from this router.
type Relation string

const (
	Customer Relation = "cust"
	Peer     Relation = "peer"
	Provider Relation = "prov"
)

func ParseRelation(s string) (Relation, error) {
	switch Relation(s) {
	case Customer, Peer, Provider:
		return Relation(s), nil
	default:
		return "", fmt.Errorf("%s is not a valid relation (cust, peer, prov)", s)
	}
}

// NeighborCfg describes one peering. The address doubles as the name
// of the neighbour's socket.
type NeighborCfg struct {
	Addr     Addr     `yaml:"addr"`
	Relation Relation `yaml:"relation"`
}

// LocalCfg is the full configuration of one router instance.
type LocalCfg struct {
	ASN       uint32        `yaml:"asn"`
	Neighbors []NeighborCfg `yaml:"neighbors"`
	SocketDir string        `yaml:"socket_dir,omitempty"` // directory holding the neighbour sockets
	LogPath   string        `yaml:"log_path,omitempty"`   // if not empty, mylar will also log to this file
}

// ParseNeighborArg parses the <ipv4>-<relation> positional argument
// form, e.g. 192.168.0.2-cust.
func ParseNeighborArg(arg string) (NeighborCfg, error) {
	addrStr, relStr, ok := strings.Cut(arg, "-")
	if !ok {
		return NeighborCfg{}, fmt.Errorf("%s is not of the form <ipv4>-<relation>", arg)
	}
	addr, err := ParseAddr(addrStr)
	if err != nil {
		return NeighborCfg{}, err
	}
	rel, err := ParseRelation(relStr)
	if err != nil {
		return NeighborCfg{}, err
	}
	return NeighborCfg{Addr: addr, Relation: rel}, nil
}
