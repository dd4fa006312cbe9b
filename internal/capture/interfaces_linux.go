//go:build linux

package capture

import (
	"fmt"

	"github.com/fako1024/gotools/link"
)

// hostLinks is a package var so tests can substitute a stub host-link
// listing, the same seam the teacher exercises in
// pkg/capture/capture_manager_test.go.
var hostLinks = link.FindAllLinks

// ListInterfaces returns the names of host interfaces matching patterns
// (glob-style, per gotools/link), or every interface if patterns is
// empty. Used by NewLive's up-front validation of "-i NAME".
func ListInterfaces(patterns ...string) ([]string, error) {
	links, err := hostLinks(patterns...)
	if err != nil {
		return nil, fmt.Errorf("capture: listing host interfaces: %w", err)
	}
	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, l.Name)
	}
	return names, nil
}

// validateInterface rejects an unknown interface name before a ring
// buffer is allocated for it, the same up-front-rejection style
// config.go's validate() uses.
func validateInterface(iface string) error {
	names, err := ListInterfaces(iface)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("capture: no such interface %q", iface)
	}
	return nil
}
