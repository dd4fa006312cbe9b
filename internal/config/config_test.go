package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsValidate(t *testing.T) {
	cfg := New()
	cfg.Input.Iface = "eth0"
	require.NoError(t, cfg.Validate())
}

func TestInputMutualExclusion(t *testing.T) {
	cfg := New()
	assert.Error(t, cfg.Validate(), "no input selected")

	cfg.Input.Iface = "eth0"
	cfg.Input.File = "/tmp/trace.pcap"
	assert.Error(t, cfg.Validate(), "mutually exclusive")
}

func TestTuningBPFMutualExclusion(t *testing.T) {
	cfg := New()
	cfg.Input.Iface = "eth0"
	cfg.Tuning.BPFFile = "/tmp/filter.bpf"
	cfg.Tuning.BPFExpr = "tcp port 80"
	require.Error(t, cfg.Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	src := strings.NewReader(`{"input":{"iface":"eth0"},"tuning":{"snaplen":128}}`)
	cfg, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Tuning.Snaplen)
	assert.Equal(t, DefaultRingBufferBlocks, cfg.Tuning.RingBufferSize)
}
