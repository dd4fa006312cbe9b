// Package textsink writes flow rows as tab-separated text (§6 "Text
// rows"), grounded on the teacher's own flat, header-then-rows flow
// table style (pkg/capture/flow.go's FlowInfos.TablePrint).
package textsink

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
)

// Sink writes one line per flow, columns joined by Sep, preceded by a
// single header line naming every plugin's schema columns in registered
// order (§6: "Headers are the concatenation, in registered order, of
// each plugin's binary-schema declared names").
type Sink struct {
	w   *bufio.Writer
	sep string
}

// New wraps w. sep defaults to a tab when empty (§6 "default tab").
func New(w io.Writer, sep string) *Sink {
	if sep == "" {
		sep = "\t"
	}
	return &Sink{w: bufio.NewWriter(w), sep: sep}
}

// WriteHeader emits the column-name header line.
func (s *Sink) WriteHeader(names []string) error {
	for i, n := range names {
		if i > 0 {
			if _, err := s.w.WriteString(s.sep); err != nil {
				return err
			}
		}
		if _, err := s.w.WriteString(n); err != nil {
			return err
		}
	}
	return s.w.WriteByte('\n')
}

// WriteRow renders one flow's column values, in buffer order, and flushes
// nothing by itself; call Flush once the run ends or after each row if
// line-buffered output is required.
func (s *Sink) WriteRow(buf *schema.Buffer) error {
	for i, v := range buf.Values {
		if i > 0 {
			if _, err := s.w.WriteString(s.sep); err != nil {
				return err
			}
		}
		if _, err := s.w.WriteString(formatValue(v)); err != nil {
			return err
		}
	}
	return s.w.WriteByte('\n')
}

// Flush pushes buffered output to the underlying writer.
func (s *Sink) Flush() error { return s.w.Flush() }

func formatValue(v schema.Value) string {
	switch v.Kind {
	case schema.KindInt64:
		return strconv.FormatInt(v.Int, 10)
	case schema.KindUint64:
		return strconv.FormatUint(v.Uint, 10)
	case schema.KindFloat64:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case schema.KindString:
		return v.Str
	case schema.KindTimestamp:
		return time.Unix(0, v.TS).UTC().Format(time.RFC3339Nano)
	case schema.KindMAC:
		if v.MAC == nil {
			return ""
		}
		return v.MAC.String()
	case schema.KindIP:
		if v.IP == nil {
			return ""
		}
		return ipString(v.IP)
	case schema.KindGroup:
		return formatGroup(v.Group)
	default:
		return fmt.Sprintf("<unknown kind %d>", v.Kind)
	}
}

func ipString(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

// formatGroup renders a repeated group as a semicolon-separated list of
// comma-joined member rows, since a group's members have no names of
// their own at this layer (the binary sink carries the real structure;
// the text sink is a human-readable approximation, §6 "Rows may be
// consumed by a separate binary-to-text converter").
func formatGroup(rows []schema.Buffer) string {
	out := ""
	for i, row := range rows {
		if i > 0 {
			out += ";"
		}
		for j, v := range row.Values {
			if j > 0 {
				out += ","
			}
			out += formatValue(v)
		}
	}
	return out
}
