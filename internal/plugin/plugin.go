// Package plugin defines the ABI every protocol-analysis plugin
// implements and the registry that discovers, orders and invokes them
// (§4.4 "Plugin dispatch"). The core never depends on a plugin's
// implementation, only on this interface.
package plugin

import (
	"github.com/lavanyaayna9/flowmeter/internal/dissect"
	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
)

// MonitoringState selects which variant of a plugin's monitoring output is
// being requested (§4.4: "monitoring(state in {hdr, val, report})").
type MonitoringState uint8

const (
	MonitoringHeader MonitoringState = iota
	MonitoringValue
	MonitoringReport
)

// Plugin is the fixed capability set every plugin exposes (§4.4). Only
// Name, Number, OnFlowGen, OnLayer2, OnLayer4, OnFlowTerm and Schema are
// mandatory; the rest are optional and a plugin may implement them as
// no-ops. Plugins that need the richer optional hooks (Init, Report,
// Monitoring, OnAppTerm, BufToSink, Save/Restore) additionally implement
// one or more of the Initializer/Reporter/... interfaces below, which the
// registry type-asserts for at dispatch time.
type Plugin interface {
	// Name is the plugin's unique identifier.
	Name() string
	// Version is an informational semantic version string.
	Version() string
	// Number is the non-negative tie-breaker used when the dependency
	// graph does not fully order two plugins (§4.4 "Load order").
	Number() int
	// Deps lists the names of plugins that must be invoked before this one.
	Deps() []string

	// Schema returns this plugin's binary-schema column declarations, used
	// both to build the shared output buffer's layout and the text-row
	// header (§4.4 "Output buffer contract").
	Schema() schema.Fields

	// OnFlowGen fires exactly once per flow creation, before the packet
	// that created the flow is processed further.
	OnFlowGen(rec *flowtable.Record, d *dissect.Descriptor)
	// OnLayer2 fires for every packet once L2 has been decoded; for frames
	// that could not be attributed, slot is flowtable.NoSlot and rec is nil.
	// A fragment dropped for lack of a fragment-index entry, or a packet
	// whose flow could not be created, reaches no plugin hook.
	OnLayer2(slot int32, rec *flowtable.Record, d *dissect.Descriptor)
	// OnLayer4 fires for every packet that has an attributed flow, after
	// full dissection.
	OnLayer4(slot int32, rec *flowtable.Record, d *dissect.Descriptor)
	// OnFlowTerm fires exactly once per flow termination and appends this
	// plugin's column values to buf, in Schema() order.
	OnFlowTerm(slot int32, rec *flowtable.Record, buf *schema.Buffer)
}

// Initializer is implemented by plugins with one-time setup (§4.4
// "optional init").
type Initializer interface {
	Init() error
}

// Reporter is implemented by plugins that contribute to the end-of-run
// report (§4.4 "optional report").
type Reporter interface {
	Report() string
}

// Monitor is implemented by plugins that emit periodic monitoring data.
type Monitor interface {
	Monitoring(state MonitoringState) []byte
}

// AppTerminator is implemented by plugins with process-shutdown cleanup
// (§4.4 "optional onAppTerm").
type AppTerminator interface {
	OnAppTerm()
}

// SinkWriter is implemented by plugins that need direct control over how
// their portion of the output buffer reaches the sink, rather than
// relying on the generic schema-driven writer (§4.4 "optional bufToSink").
type SinkWriter interface {
	BufToSink(buf *schema.Buffer) error
}

// StateSaver is implemented by plugins with state that must survive across
// a checkpoint/resume cycle (§4.4 "optional state save/restore", §6
// "State history").
type StateSaver interface {
	SaveState() ([]byte, error)
	RestoreState([]byte) error
}
