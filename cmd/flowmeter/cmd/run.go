package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lavanyaayna9/flowmeter/internal/capture"
	"github.com/lavanyaayna9/flowmeter/internal/config"
	"github.com/lavanyaayna9/flowmeter/internal/dissect"
	"github.com/lavanyaayna9/flowmeter/internal/dissect/linklayer"
	"github.com/lavanyaayna9/flowmeter/internal/dissect/stpbpdu"
	"github.com/lavanyaayna9/flowmeter/internal/dissect/subnetrange"
	"github.com/lavanyaayna9/flowmeter/internal/engine"
	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
	"github.com/lavanyaayna9/flowmeter/internal/logging"
	"github.com/lavanyaayna9/flowmeter/internal/metrics"
	"github.com/lavanyaayna9/flowmeter/internal/plugin"
	"github.com/lavanyaayna9/flowmeter/internal/plugin/builtin"
	"github.com/lavanyaayna9/flowmeter/internal/sink/binsink"
	"github.com/lavanyaayna9/flowmeter/internal/sink/filemanager"
	"github.com/lavanyaayna9/flowmeter/internal/sink/forensic"
	"github.com/lavanyaayna9/flowmeter/internal/sink/rotator"
	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
	"github.com/lavanyaayna9/flowmeter/internal/sink/textsink"
	"github.com/lavanyaayna9/flowmeter/internal/state"
	"github.com/lavanyaayna9/flowmeter/pkg/capinfo"
)

// Sizing constants for pieces §6 exposes as ratios/counts rather than
// absolute sizes (-f scales a base flow/fragment-index capacity, -B is
// the live ring's block count, its block size is fixed here).
const (
	baseFlowCapacity  = 1 << 14
	baseFragCapacity  = 1 << 10
	ringBufferBlockSz = 1 << 20

	defaultTimeoutSeconds = 300
	forensicDumpBytes     = 128
)

// Cancellation levels (§5 "the single interrupt flag has three levels").
// Ctrl-C increments the level; SIGTERM jumps straight to levelRemoveAll.
const (
	levelNone int32 = iota
	levelDrain
	levelRemoveAll
	levelImmediate
)

// run wires capture, the engine, plugins and sinks together and drives
// the main capture loop until a cancellation level is reached or the
// capture source is exhausted. bpfExpr is the tcpdump-style filter
// expression taken from the command line's remaining positional args,
// used when -F names no filter file.
func run(cfg *config.Config, bpfExpr string) error {
	logger := logging.Logger()
	applyTuning(cfg)

	if cfg.Tuning.PluginDir != "" {
		logger.Warnf("plugin directory %q configured, but dynamic plugin loading is not implemented; only the built-in plugins run", cfg.Tuning.PluginDir)
	}
	if bpf := bpfFilterText(cfg, bpfExpr); bpf != "" {
		logger.Warnf("BPF filter %q requested but not attached at the capture layer; every packet on the source reaches the dissector", bpf)
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	src, err := capture.Open(capture.InputSpec{
		Iface:   cfg.Input.Iface,
		File:    cfg.Input.File,
		List:    cfg.Input.List,
		Rolling: cfg.Input.Rolling,
		Live: capture.LiveConfig{
			Snaplen:             cfg.Tuning.Snaplen,
			RingBufferBlockSize: ringBufferBlockSz,
			RingBufferNumBlocks: cfg.Tuning.RingBufferSize,
			Promisc:             true,
		},
	})
	if err != nil {
		return fmt.Errorf("opening capture source: %w", err)
	}
	defer src.Close()

	mgr := filemanager.New(0)
	defer mgr.CloseAll()

	rows, closeRows, err := openRowSink(mgr, cfg)
	if err != nil {
		return err
	}
	if ts, ok := rows.(*textsink.Sink); ok {
		if err := ts.WriteHeader(flatFieldNames(reg)); err != nil {
			return fmt.Errorf("writing output header: %w", err)
		}
	}
	defer closeRows()

	var forensicSink *forensic.Sink
	if cfg.Output.Forensic {
		w, closeForensic, err := openForensicWriter(mgr, cfg)
		if err != nil {
			return err
		}
		defer closeForensic()
		forensicSink = forensic.New(w, cfg.Output.Separator, forensicDumpBytes)
	}

	tally := newWarningTally()
	stpMon := stpbpdu.NewMonitor()

	e := engine.New(engine.Config{
		Capacity:               baseFlowCapacity * cfg.Tuning.HashScaleFactor,
		FragCapacity:           baseFragCapacity * cfg.Tuning.HashScaleFactor,
		IncludeVLAN:            true,
		DefaultTimeoutSeconds:  defaultTimeoutSeconds,
		AutopilotN:             1,
		AcceptCraftedFragments: false,
	}, reg, func(slot int32, rec *flowtable.Record, buf *schema.Buffer) {
		start := time.Now()
		tally.observe(rec.Status)
		if rec.Status.Has(status.EvictedAutopilot) {
			metrics.FlowsEvicted.Inc()
		}
		if err := rows.WriteRow(buf); err != nil {
			logger.Errorf("writing flow row: %s", err)
		}
		if wf, ok := rows.(interface{ WroteFlow() error }); ok {
			if err := wf.WroteFlow(); err != nil {
				logger.Errorf("rotating output file: %s", err)
			}
		}
		metrics.WriteoutDuration.Observe(time.Since(start).Seconds())
	})

	e.SetOnUnattributed(func(raw []byte, lt linklayer.Type) {
		stpMon.Observe(raw, lt)
	})

	if forensicSink != nil {
		e.SetOnPacket(func(slot int32, d *dissect.Descriptor) {
			var flowIndex uint64
			rec := e.FlowTable().Record(slot)
			if rec != nil {
				flowIndex = rec.Index
			}
			// §10 "Alarm-triggered forensic capture": -alarm_only restricts
			// the dump to flows a plugin flagged status.Alarm, the same
			// FL_ALARM/pcapd behavior the original plugin-fired dump models.
			if cfg.Output.AlarmOnly && (rec == nil || !rec.Status.Has(status.Alarm)) {
				return
			}
			pkt := capinfo.FromDescriptor(d, e.WallClockNS())
			var payload []byte
			if d.L7Off >= 0 && d.L7Off < d.CapLen {
				payload = d.Raw[d.L7Off:d.CapLen]
			}
			if err := forensicSink.WriteRow(flowIndex, pkt, nil, payload); err != nil {
				logger.Errorf("writing forensic row: %s", err)
			}
		})
	}

	if cfg.Output.StateFile != "" {
		if err := loadCheckpoint(cfg.Output.StateFile, e, reg); err != nil {
			logger.Warnf("not resuming from state file %q: %s", cfg.Output.StateFile, err)
		}
	}

	sigState := &signalState{}
	monitorInterval := time.Duration(cfg.Tuning.MonitorInterval * float64(time.Second))
	tickCh := make(chan struct{}, 1)
	go sigState.watch(src, monitorInterval, tickCh)

	var pktBuf capture.Packet
	level := levelNone
runLoop:
	for {
		pkt, nextErr := src.NextPacket(&pktBuf)
		switch nextErr {
		case nil:
			metrics.PacketsProcessed.Inc()
			ts := pkt.TimestampNS
			if ts == 0 {
				ts = time.Now().UnixNano()
			}
			dispatchStart := time.Now()
			e.Dispatch(pkt.Data[:pkt.CapLen], pkt.CapLen, pkt.WireLen, src.LinkType(), ts)
			metrics.DispatchDuration.Observe(time.Since(dispatchStart).Seconds())
		case capture.ErrCaptureUnblock:
			// fall through to the shared service-flags step below
		case capture.ErrCaptureStopped:
			break runLoop
		default:
			metrics.CaptureErrors.Inc()
			logger.Warnf("recoverable capture error: %s", nextErr)
		}

		if atomic.CompareAndSwapInt32(&sigState.endReport, 1, 0) {
			logger.Infof("%s", textsink.Report("flowmeter (interim)", engineCounters(e), tally.snapshot()))
		}
		select {
		case <-tickCh:
			writeMonitorSnapshot(cfg, reg, e)
			metrics.FlowsActive.Set(float64(e.FlowTable().Len()))
			metrics.FragmentsPending.Set(float64(e.FragPending()))
		default:
		}

		level = atomic.LoadInt32(&sigState.level)
		if level >= levelImmediate {
			logger.Warnf("immediate exit requested, %d live flows left unterminated", e.FlowTable().Len())
			break runLoop
		}
		if level >= levelDrain {
			break runLoop
		}
	}

	if level < levelImmediate {
		e.Drain()
	}
	if err := rows.Flush(); err != nil {
		logger.Errorf("flushing output: %s", err)
	}

	if cfg.Output.StateFile != "" {
		if err := saveCheckpoint(cfg.Output.StateFile, e, reg); err != nil {
			logger.Errorf("writing state checkpoint: %s", err)
		}
	}

	logger.Infof("%s", textsink.Report("flowmeter", engineCounters(e), tally.snapshot()))
	logger.Infof("%s", stpMon.Report())
	return nil
}

// buildRegistry registers the built-in plugins allowed by the manifest
// (§6 "-b FILE": "plugin white/black list") and resolves dispatch order.
func buildRegistry(cfg *config.Config) (*plugin.Registry, error) {
	manifest := plugin.Manifest{}
	if cfg.Tuning.ManifestFile != "" {
		data, err := os.ReadFile(cfg.Tuning.ManifestFile)
		if err != nil {
			return nil, fmt.Errorf("reading plugin manifest: %w", err)
		}
		manifest, err = plugin.DecodeManifest(data)
		if err != nil {
			return nil, err
		}
	}

	var subnets *subnetrange.Table
	if cfg.Tuning.SubnetFile != "" {
		var err error
		subnets, err = subnetrange.Load(cfg.Tuning.SubnetFile)
		if err != nil {
			return nil, err
		}
	}

	reg := plugin.NewRegistry()
	if manifest.Allowed("basicflow") {
		if err := reg.Register(builtin.NewBasicFlow(subnets)); err != nil {
			return nil, err
		}
	}
	if manifest.Allowed("httpsniff") {
		if err := reg.Register(builtin.NewHTTPSniff()); err != nil {
			return nil, err
		}
	}
	if err := reg.Resolve(); err != nil {
		return nil, fmt.Errorf("resolving plugin dispatch order: %w", err)
	}
	return reg, nil
}

func flatFieldNames(reg *plugin.Registry) []string {
	var names []string
	for _, p := range reg.Ordered() {
		names = append(names, p.Schema().Names()...)
	}
	return names
}

func bpfFilterText(cfg *config.Config, bpfExpr string) string {
	if cfg.Tuning.BPFFile != "" {
		data, err := os.ReadFile(cfg.Tuning.BPFFile)
		if err != nil {
			logging.Logger().Warnf("reading BPF filter file %q: %s", cfg.Tuning.BPFFile, err)
			return ""
		}
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(bpfExpr)
}

// rowSink is the common surface textsink.Sink and binsink.Sink share.
type rowSink interface {
	WriteRow(buf *schema.Buffer) error
	Flush() error
}

type handleWriter struct {
	mgr *filemanager.Manager
	h   filemanager.Handle
}

func (hw handleWriter) Write(p []byte) (int, error) { return hw.mgr.Write(hw.h, p) }

// openRowSink resolves -w/-W into a rowSink plus a close function. A
// ".bin" prefix selects the binary row format (§6 "Binary rows"); every
// other prefix, including "-" for stdout, gets text rows.
func openRowSink(mgr *filemanager.Manager, cfg *config.Config) (rowSink, func() error, error) {
	w, closeFn, err := openOutputWriter(mgr, cfg)
	if err != nil {
		return nil, nil, err
	}
	if wantsBinary(cfg) {
		return binsink.New(w), closeFn, nil
	}
	return textsink.New(w, cfg.Output.Separator), closeFn, nil
}

func wantsBinary(cfg *config.Config) bool {
	prefix := cfg.Output.Prefix
	if cfg.Output.Rolling != "" {
		if sp, err := rotator.ParseSpec(cfg.Output.Rolling); err == nil {
			prefix = sp.Prefix
		}
	}
	return strings.HasSuffix(prefix, ".bin")
}

// openOutputWriter opens the underlying io.Writer for flow rows: a
// rotator.Writer when -W is set, a single filemanager-backed file when
// -w names a path, or stdout when -w is "-" or empty.
func openOutputWriter(mgr *filemanager.Manager, cfg *config.Config) (io.Writer, func() error, error) {
	if cfg.Output.Rolling != "" {
		spec, err := rotator.ParseSpec(cfg.Output.Rolling)
		if err != nil {
			return nil, nil, err
		}
		w, err := rotator.New(mgr, spec)
		if err != nil {
			return nil, nil, err
		}
		return w, w.Close, nil
	}
	if cfg.Output.Prefix == "" || cfg.Output.Prefix == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	h, err := mgr.Open(cfg.Output.Prefix, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening output %q: %w", cfg.Output.Prefix, err)
	}
	return handleWriter{mgr, h}, func() error { return mgr.Close(h) }, nil
}

// openForensicWriter opens the per-packet forensic file (§6 "-s"),
// always a single file (or stderr when rows go to stdout) never subject
// to -W rotation, since
// forensic output is diagnostic rather than the primary persisted rows.
func openForensicWriter(mgr *filemanager.Manager, cfg *config.Config) (io.Writer, func() error, error) {
	if cfg.Output.Prefix == "" || cfg.Output.Prefix == "-" {
		return os.Stderr, func() error { return nil }, nil
	}
	path := cfg.Output.Prefix + ".forensic"
	h, err := mgr.Open(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening forensic file %q: %w", path, err)
	}
	return handleWriter{mgr, h}, func() error { return mgr.Close(h) }, nil
}

// signalState holds the atomics the signal-watching goroutine and the
// main loop share. Ctrl-C (SIGINT) increments level; SIGTERM jumps
// straight to levelRemoveAll; SIGUSR1 requests an interim report;
// SIGUSR2 toggles periodic monitoring; SIGALRM forces an immediate
// monitoring tick while periodic monitoring is on.
type signalState struct {
	level      int32
	endReport  int32
	monitoring int32
}

func (s *signalState) watch(src capture.Source, monitorInterval time.Duration, tickCh chan<- struct{}) {
	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGALRM)

	var tickerC <-chan time.Time
	if monitorInterval > 0 {
		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()
		tickerC = ticker.C
		atomic.StoreInt32(&s.monitoring, 1)
	}

	notify := func() {
		select {
		case tickCh <- struct{}{}:
		default:
		}
		_ = src.Unblock()
	}

	for {
		select {
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			switch sig {
			case syscall.SIGINT:
				atomic.AddInt32(&s.level, 1)
				_ = src.Unblock()
			case syscall.SIGTERM:
				atomic.StoreInt32(&s.level, levelRemoveAll)
				_ = src.Unblock()
			case syscall.SIGUSR1:
				atomic.StoreInt32(&s.endReport, 1)
				_ = src.Unblock()
			case syscall.SIGUSR2:
				if atomic.LoadInt32(&s.monitoring) == 0 {
					atomic.StoreInt32(&s.monitoring, 1)
				} else {
					atomic.StoreInt32(&s.monitoring, 0)
				}
				_ = src.Unblock()
			case syscall.SIGALRM:
				if atomic.LoadInt32(&s.monitoring) == 1 {
					notify()
				}
			}
		case <-tickerC:
			if atomic.LoadInt32(&s.monitoring) == 1 {
				notify()
			}
		}
	}
}

// warningTally counts, across a run, how many terminated flows carried
// each named status bit worth surfacing in the end-of-run report (§7
// "a final report summarizes aggregated status bits").
type warningTally struct {
	counts map[status.Bits]uint64
}

var reportedBits = []struct {
	name string
	bit  status.Bits
}{
	{"ipv4_frag_first_missing", status.IPv4FragFirstMissing},
	{"ip_duplicate_ipid", status.IPDuplicateIPID},
	{"ip_payload_len_mismatch", status.IPPayloadLenMismatch},
	{"ip_header_truncated", status.IPHeaderTruncated},
	{"snaplen_truncated", status.SnaplenTruncated},
	{"short_header", status.ShortHeader},
	{"sequence_gap_frag", status.SequenceGapFrag},
	{"land_attack", status.LandAttack},
	{"overflow", status.Overflow},
	{"evicted_autopilot", status.EvictedAutopilot},
	{"timed_out", status.TimedOut},
	{"drained", status.Drained},
	{"warn_timejump", status.WarnTimejump},
}

func newWarningTally() *warningTally {
	return &warningTally{counts: make(map[status.Bits]uint64, len(reportedBits))}
}

func (t *warningTally) observe(bits status.Bits) {
	for _, rb := range reportedBits {
		if bits.Has(rb.bit) {
			t.counts[rb.bit]++
		}
	}
}

func (t *warningTally) snapshot() []textsink.StatusWarning {
	var out []textsink.StatusWarning
	for _, rb := range reportedBits {
		if n := t.counts[rb.bit]; n > 0 {
			out = append(out, textsink.StatusWarning{Name: rb.name, Count: n})
		}
	}
	return out
}

func engineCounters(e *engine.Engine) textsink.Counters {
	c := e.Counters
	return textsink.Counters{
		PacketsTotal:  c.PacketsTotal,
		BytesTotal:    c.BytesTotal,
		PacketsNoFlow: c.PacketsNoFlow,
		PacketsIPv4:   c.PacketsIPv4,
		PacketsIPv6:   c.PacketsIPv6,
		PacketsTCP:    c.PacketsTCP,
		PacketsUDP:    c.PacketsUDP,
		PacketsOther:  c.PacketsOther,
	}
}

// writeMonitorSnapshot renders one periodic monitoring sample (§6
// "Monitoring file") to -m's file, or logs it when -m was not given.
func writeMonitorSnapshot(cfg *config.Config, reg *plugin.Registry, e *engine.Engine) {
	data, err := textsink.Monitoring(reg, plugin.MonitoringValue)
	if err != nil {
		logging.Logger().Errorf("building monitoring snapshot: %s", err)
		return
	}
	if cfg.Output.MonitorFile == "" {
		logging.Logger().Debugf("monitor: %s", data)
		return
	}
	if err := os.WriteFile(cfg.Output.MonitorFile, data, 0644); err != nil {
		logging.Logger().Errorf("writing monitoring file %q: %s", cfg.Output.MonitorFile, err)
	}
}

// loadCheckpoint resumes counters, time anchors and plugin state from
// path (§6 "State history").
func loadCheckpoint(path string, e *engine.Engine, reg *plugin.Registry) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cp, err := state.Load(f)
	if err != nil {
		return err
	}
	e.Counters = cp.Counters
	e.RestoreTimeAnchors(cp.WallClockNS, cp.StartTimeNS)
	return state.Restore(reg, cp.PluginStates)
}

// saveCheckpoint writes the current counters, time anchors and plugin
// state to path, overwriting any previous checkpoint.
func saveCheckpoint(path string, e *engine.Engine, reg *plugin.Registry) error {
	states, err := state.Collect(reg)
	if err != nil {
		return err
	}
	cp := state.Checkpoint{
		Counters:     e.Counters,
		WallClockNS:  e.WallClockNS(),
		StartTimeNS:  e.StartTimeNS(),
		PluginStates: states,
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return state.Save(f, cp)
}
