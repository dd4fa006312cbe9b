package textsink

import (
	"fmt"

	"github.com/xlab/tablewriter"
)

// Counters is the subset of the engine's run counters the end-of-run
// report prints. It is declared here, rather than imported from the
// engine package, so textsink never depends on it.
type Counters struct {
	PacketsTotal  uint64
	BytesTotal    uint64
	PacketsNoFlow uint64
	PacketsIPv4   uint64
	PacketsIPv6   uint64
	PacketsTCP    uint64
	PacketsUDP    uint64
	PacketsOther  uint64
}

// StatusWarning is one aggregated status-bit line in the end-of-run
// report (§7 "a final report summarizes aggregated status bits ... and
// per-protocol counters").
type StatusWarning struct {
	Name  string
	Count uint64
}

// Report renders the end-of-run summary (§7 "user-visible failure
// behavior"): protocol counters plus every status bit that fired at
// least once, as a boxed table. Grounded on gpctl's own interface-status
// table (cmd/gpctl/cmd/status.go: CreateTable/AddTitle/AddRow/
// AddSeparator/SetAlign/Render).
func Report(title string, c Counters, warnings []StatusWarning) string {
	table := tablewriter.CreateTable()
	table.UTF8Box()
	table.AddTitle(title)

	table.AddRow("packets total", fmt.Sprint(c.PacketsTotal))
	table.AddRow("bytes total", fmt.Sprint(c.BytesTotal))
	table.AddRow("packets without flow", fmt.Sprint(c.PacketsNoFlow))
	table.AddRow("IPv4 / IPv6", fmt.Sprintf("%d / %d", c.PacketsIPv4, c.PacketsIPv6))
	table.AddRow("TCP / UDP / other", fmt.Sprintf("%d / %d / %d", c.PacketsTCP, c.PacketsUDP, c.PacketsOther))

	if len(warnings) > 0 {
		table.AddSeparator()
		table.AddRow("status bit", "occurrences")
		for _, w := range warnings {
			table.AddRow(w.Name, fmt.Sprint(w.Count))
		}
	}

	table.SetAlign(tablewriter.AlignLeft, 1)
	table.SetAlign(tablewriter.AlignRight, 2)
	return table.Render()
}
