//go:build !linux

package capture

import "fmt"

// LiveConfig mirrors the linux build's field set so callers can construct
// it unconditionally.
type LiveConfig struct {
	Iface               string
	Snaplen             int
	RingBufferBlockSize int
	RingBufferNumBlocks int
	Promisc             bool
}

func openLive(cfg LiveConfig) (Source, error) {
	return nil, fmt.Errorf("capture: live AF_PACKET capture (-i %s) requires linux", cfg.Iface)
}
