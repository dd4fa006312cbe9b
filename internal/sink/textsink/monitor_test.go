package textsink

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavanyaayna9/flowmeter/internal/dissect"
	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/internal/plugin"
	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
)

type monitoringPlugin struct {
	name string
}

func (p *monitoringPlugin) Name() string           { return p.name }
func (p *monitoringPlugin) Version() string        { return "0" }
func (p *monitoringPlugin) Number() int            { return 0 }
func (p *monitoringPlugin) Deps() []string         { return nil }
func (p *monitoringPlugin) Schema() schema.Fields  { return nil }
func (p *monitoringPlugin) OnFlowGen(*flowtable.Record, *dissect.Descriptor)       {}
func (p *monitoringPlugin) OnLayer2(int32, *flowtable.Record, *dissect.Descriptor) {}
func (p *monitoringPlugin) OnLayer4(int32, *flowtable.Record, *dissect.Descriptor) {}
func (p *monitoringPlugin) OnFlowTerm(int32, *flowtable.Record, *schema.Buffer)    {}

func (p *monitoringPlugin) Monitoring(state plugin.MonitoringState) []byte {
	return []byte(`{"state":` + string(rune('0'+int(state))) + `}`)
}

var _ plugin.Monitor = (*monitoringPlugin)(nil)

func TestMonitoringAssemblesPerPluginJSON(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(&monitoringPlugin{name: "dns"}))
	require.NoError(t, reg.Resolve())

	out, err := Monitoring(reg, plugin.MonitoringValue)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Contains(t, decoded, "dns")
}
