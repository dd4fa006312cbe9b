// Package subnetrange loads a named list of CIDR ranges and matches
// addresses against it, the generalized form of Tranalyzer2's
// subnetHL4/subnetHL6 range tables (tranalyzer2/src/main.c's
// subnet_init4/subnet_init6, loaded from SUBNETFILE4/SUBNETFILE6 and
// tagging matching flows with TORADD). Here one file holds both address
// families and the tag itself is left to the caller (status.SubnetFlagged).
package subnetrange

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
)

// Table is an immutable set of CIDR ranges, matched linearly. Range
// tables are small (tens to low hundreds of entries) and built once at
// startup, so a linear scan over *net.IPNet needs no trie.
type Table struct {
	nets []*net.IPNet
}

// Load reads one CIDR per non-blank, non-comment line from path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("subnetrange: opening %q: %w", path, err)
	}
	defer f.Close()

	t := &Table{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		_, ipnet, err := net.ParseCIDR(line)
		if err != nil {
			return nil, fmt.Errorf("subnetrange: %q: %w", line, err)
		}
		t.nets = append(t.nets, ipnet)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Match reports whether ip falls inside any loaded range.
func (t *Table) Match(ip net.IP) bool {
	if t == nil {
		return false
	}
	for _, n := range t.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Len reports how many ranges are loaded.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nets)
}
