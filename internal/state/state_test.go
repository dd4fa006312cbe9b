package state

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavanyaayna9/flowmeter/internal/dissect"
	"github.com/lavanyaayna9/flowmeter/internal/engine"
	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/internal/plugin"
	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
)

// fakePlugin is a minimal Plugin + StateSaver used only to exercise
// Collect/Restore without pulling in a real builtin plugin.
type fakePlugin struct {
	name  string
	saved []byte
}

func (p *fakePlugin) Name() string           { return p.name }
func (p *fakePlugin) Version() string        { return "0" }
func (p *fakePlugin) Number() int            { return 0 }
func (p *fakePlugin) Deps() []string         { return nil }
func (p *fakePlugin) Schema() schema.Fields  { return nil }
func (p *fakePlugin) OnFlowGen(*flowtable.Record, *dissect.Descriptor)            {}
func (p *fakePlugin) OnLayer2(int32, *flowtable.Record, *dissect.Descriptor)      {}
func (p *fakePlugin) OnLayer4(int32, *flowtable.Record, *dissect.Descriptor)      {}
func (p *fakePlugin) OnFlowTerm(int32, *flowtable.Record, *schema.Buffer)         {}

func (p *fakePlugin) SaveState() ([]byte, error) { return p.saved, nil }
func (p *fakePlugin) RestoreState(b []byte) error {
	p.saved = append([]byte(nil), b...)
	return nil
}

var _ plugin.Plugin = (*fakePlugin)(nil)
var _ plugin.StateSaver = (*fakePlugin)(nil)

func TestSaveLoadRoundTrip(t *testing.T) {
	cp := Checkpoint{
		Counters: engine.Counters{
			PacketsTotal: 100,
			BytesTotal:   204800,
			PacketsTCP:   70,
			PacketsUDP:   30,
		},
		WallClockNS:  1700000000000000000,
		StartTimeNS:  1699999990000000000,
		PluginStates: map[string][]byte{
			"dns":  []byte("dns-restorable-state-blob"),
			"http": []byte(""),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, cp))

	got, err := Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, cp.Counters, got.Counters)
	assert.Equal(t, cp.WallClockNS, got.WallClockNS)
	assert.Equal(t, cp.StartTimeNS, got.StartTimeNS)
	assert.Equal(t, []byte("dns-restorable-state-blob"), got.PluginStates["dns"])
	assert.Equal(t, []byte(""), got.PluginStates["http"])
}

func TestCollectAndRestore(t *testing.T) {
	reg := plugin.NewRegistry()
	p1 := &fakePlugin{name: "dns", saved: []byte("saved-dns")}
	require.NoError(t, reg.Register(p1))
	require.NoError(t, reg.Resolve())

	states, err := Collect(reg)
	require.NoError(t, err)
	assert.Equal(t, []byte("saved-dns"), states["dns"])

	p1.saved = nil
	require.NoError(t, Restore(reg, states))
	assert.Equal(t, []byte("saved-dns"), p1.saved)
}

func TestRestoreIgnoresMissingPluginState(t *testing.T) {
	reg := plugin.NewRegistry()
	p1 := &fakePlugin{name: "dns"}
	require.NoError(t, reg.Register(p1))
	require.NoError(t, reg.Resolve())

	require.NoError(t, Restore(reg, map[string][]byte{}))
	assert.Nil(t, p1.saved)
}
