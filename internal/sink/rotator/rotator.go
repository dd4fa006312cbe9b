// Package rotator implements rolling output files (§6 "Output controls":
// "-W PREFIX[:SIZE][,START] with SIZE in bytes/K/M/G, optional 'f' suffix
// switching SIZE to flow count"), the output-side counterpart of
// capture.RollingSpec/RollingSource.
package rotator

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lavanyaayna9/flowmeter/internal/sink/filemanager"
)

// Unit selects whether Threshold counts bytes written or flow rows
// written before the current file is closed and the next one opened.
type Unit uint8

const (
	UnitBytes Unit = iota
	UnitFlows
)

// Spec is a parsed -W argument.
type Spec struct {
	Prefix    string
	Threshold int64 // 0 means "never rotate"
	Unit      Unit
	Start     int
}

// ParseSpec parses "-W" arguments such as "/out/trace", "/out/trace:64M",
// "/out/trace:10000f,5".
func ParseSpec(arg string) (Spec, error) {
	sp := Spec{Prefix: arg}

	rest := arg
	if i := strings.LastIndex(rest, ","); i >= 0 {
		startStr := rest[i+1:]
		rest = rest[:i]
		n, err := strconv.Atoi(startStr)
		if err != nil {
			return Spec{}, fmt.Errorf("rotator: invalid -W start suffix %q: %w", startStr, err)
		}
		sp.Start = n
	}
	if i := strings.Index(rest, ":"); i >= 0 {
		sizeStr := rest[i+1:]
		rest = rest[:i]
		threshold, unit, err := parseSize(sizeStr)
		if err != nil {
			return Spec{}, err
		}
		sp.Threshold, sp.Unit = threshold, unit
	}
	if rest == "" {
		return Spec{}, fmt.Errorf("rotator: -W expression must name a path prefix")
	}
	sp.Prefix = rest
	return sp, nil
}

func parseSize(s string) (int64, Unit, error) {
	unit := UnitBytes
	if strings.HasSuffix(s, "f") {
		unit = UnitFlows
		s = s[:len(s)-1]
	}
	mult := int64(1)
	if s != "" {
		switch s[len(s)-1] {
		case 'K', 'k':
			mult, s = 1024, s[:len(s)-1]
		case 'M', 'm':
			mult, s = 1024*1024, s[:len(s)-1]
		case 'G', 'g':
			mult, s = 1024*1024*1024, s[:len(s)-1]
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, unit, fmt.Errorf("rotator: invalid -W size %q: %w", s, err)
	}
	return n * mult, unit, nil
}

func (sp Spec) pathFor(seq int) string {
	return fmt.Sprintf("%s.%d", sp.Prefix, seq)
}

// Writer rotates output files under a filemanager.Manager as Write calls
// or Wrote (flow-count) calls cross Spec.Threshold. A zero Threshold means
// the prefix names exactly one file, never rotated.
type Writer struct {
	spec    Spec
	mgr     *filemanager.Manager
	seq     int
	cur     filemanager.Handle
	written int64
}

// New opens the first file in the series (or the single output file, if
// Threshold is 0).
func New(mgr *filemanager.Manager, spec Spec) (*Writer, error) {
	w := &Writer{spec: spec, mgr: mgr, seq: spec.Start}
	if err := w.openCurrent(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) openCurrent() error {
	path := w.spec.Prefix
	if w.spec.Threshold > 0 {
		path = w.spec.pathFor(w.seq)
	}
	h, err := w.mgr.Open(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("rotator: opening %q: %w", path, err)
	}
	w.cur = h
	w.written = 0
	return nil
}

// Write implements io.Writer, rotating to the next file first if a
// byte-threshold rotation is due.
func (w *Writer) Write(p []byte) (int, error) {
	if w.spec.Threshold > 0 && w.spec.Unit == UnitBytes && w.written >= w.spec.Threshold {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.mgr.Write(w.cur, p)
	if w.spec.Unit == UnitBytes {
		w.written += int64(n)
	}
	return n, err
}

// WroteFlow is called once per emitted row when rotation is flow-counted,
// rotating to the next file if the threshold has been reached.
func (w *Writer) WroteFlow() error {
	if w.spec.Unit != UnitFlows {
		return nil
	}
	w.written++
	if w.spec.Threshold > 0 && w.written >= w.spec.Threshold {
		return w.rotate()
	}
	return nil
}

func (w *Writer) rotate() error {
	if err := w.mgr.Close(w.cur); err != nil {
		return err
	}
	w.seq++
	return w.openCurrent()
}

// Flush flushes the current file's buffered output.
func (w *Writer) Flush() error { return w.mgr.Flush(w.cur) }

// Close flushes and closes the current file.
func (w *Writer) Close() error { return w.mgr.Close(w.cur) }
