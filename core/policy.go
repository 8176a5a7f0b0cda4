package core

import (
	"github.com/encodeous/mylar/state"
)

// Permitted reports whether traffic may cross from an ingress
// relation to an egress relation. At least one side of the pair must
// be a customer link; peer and provider links only carry traffic to
// or from customers. The same rule governs data forwarding and
// announcement propagation.
func Permitted(ingress, egress state.Relation) bool {
	return ingress == state.Customer || egress == state.Customer
}

// propagationTargets selects the neighbours an announcement learned
// from ingress is re-advertised to: everyone else when it came from a
// customer, only customers otherwise.
func propagationTargets(s *state.RouterState, ingress state.Addr) []*state.Neighbour {
	in := s.GetNeighbour(ingress)
	targets := make([]*state.Neighbour, 0, len(s.Neighbours))
	for _, n := range s.Neighbours {
		if n.Addr == ingress {
			continue
		}
		if Permitted(in.Relation, n.Relation) {
			targets = append(targets, n)
		}
	}
	return targets
}
