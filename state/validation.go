package state

import (
	"fmt"
	"os"
	"path/filepath"
)

func PathValidator(s string) error {
	_, err := os.Stat(filepath.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func LocalConfigValidator(cfg *LocalCfg) error {
	if cfg.ASN == 0 {
		return fmt.Errorf("asn must be nonzero")
	}
	if len(cfg.Neighbors) == 0 {
		return fmt.Errorf("at least one neighbor is required")
	}
	seen := make(map[Addr]bool)
	for _, n := range cfg.Neighbors {
		switch n.Relation {
		case Customer, Peer, Provider:
		default:
			return fmt.Errorf("neighbor %s has invalid relation %q", n.Addr, n.Relation)
		}
		if seen[n.Addr] {
			return fmt.Errorf("duplicate neighbor %s", n.Addr)
		}
		seen[n.Addr] = true
	}
	if cfg.LogPath != "" {
		if err := PathValidator(cfg.LogPath); err != nil {
			return err
		}
	}
	return nil
}
