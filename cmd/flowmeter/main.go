// Command flowmeter captures and classifies network traffic flows (§1
// PURPOSE & SCOPE).
package main

import (
	"github.com/lavanyaayna9/flowmeter/cmd/flowmeter/cmd"
	"github.com/lavanyaayna9/flowmeter/internal/logging"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logging.Logger().Fatalf("flowmeter terminated with an error: %s", err)
	}
}
