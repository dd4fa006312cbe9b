package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenRejectsNoSelection(t *testing.T) {
	_, err := Open(InputSpec{})
	assert.Error(t, err)
}

func TestOpenRejectsMultipleSelections(t *testing.T) {
	_, err := Open(InputSpec{Iface: "eth0", File: "trace.pcap"})
	assert.Error(t, err)
}
