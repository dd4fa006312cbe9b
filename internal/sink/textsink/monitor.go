package textsink

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"

	"github.com/lavanyaayna9/flowmeter/internal/plugin"
)

// monitorJSON mirrors pkg/api/json/json.go's jsoniter drop-in for
// encoding/json, used here for the monitoring file's machine-parseable
// variant (§6 "Monitoring file": "human-readable or machine-parseable
// variant").
var monitorJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Monitoring walks reg in dispatch order and asks every Monitor-capable
// plugin for its Monitoring(state) output, assembling the results into
// one JSON object keyed by plugin name. Plugins that don't implement
// Monitor are omitted.
func Monitoring(reg *plugin.Registry, state plugin.MonitoringState) ([]byte, error) {
	out := make(map[string]json.RawMessage)
	for _, p := range reg.Ordered() {
		mon, ok := p.(plugin.Monitor)
		if !ok {
			continue
		}
		out[p.Name()] = mon.Monitoring(state)
	}
	return monitorJSON.Marshal(out)
}
