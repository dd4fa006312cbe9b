package plugin

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// manifestJSON mirrors pkg/api/json/json.go's package-level jsoniter
// config var, used as a fast drop-in for encoding/json.
var manifestJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Manifest is the decoded form of the plugin white/black list file (§6
// Tuning: "-b FILE"). A plugin is registered only if Allowed returns true
// for its name.
type Manifest struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

// DecodeManifest parses a JSON plugin manifest.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := manifestJSON.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("plugin: decoding manifest: %w", err)
	}
	return m, nil
}

// Allowed reports whether name passes the manifest: absent from Deny,
// and present in Allow whenever Allow is non-empty (an empty Allow list
// means "every plugin not denied").
func (m Manifest) Allowed(name string) bool {
	for _, d := range m.Deny {
		if d == name {
			return false
		}
	}
	if len(m.Allow) == 0 {
		return true
	}
	for _, a := range m.Allow {
		if a == name {
			return true
		}
	}
	return false
}
