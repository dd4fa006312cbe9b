package builtin

import (
	"bytes"
	"strings"
	"sync"

	"github.com/lavanyaayna9/flowmeter/internal/dissect"
	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
)

var httpMethods = [][]byte{
	[]byte("GET "), []byte("POST "), []byte("PUT "), []byte("HEAD "),
	[]byte("DELETE "), []byte("OPTIONS "), []byte("PATCH "),
}

// httpDataCMax bounds how many distinct values of a given header field a
// single flow accumulates, mirroring httpSniffer.h's HTTP_DATA_C_MAX cap
// on its per-flow host[]/url[]/cookie[]/... arrays.
const httpDataCMax = 8

// maxHeaderBlockBytes flags a flow status.Alarm when one packet's
// request/header block exceeds this size, the same "anomalous content"
// signal httpSniffer.c's aFlags/cFlags bits raise for oversized or
// malformed header blocks (FL_ALARM/pcapd dump-on-alarm, §10).
const maxHeaderBlockBytes = 4096

// httpFlowState is the per-flow accumulator, the Go analogue of
// httpSniffer.h's plugin-state struct: bounded slices of distinct
// extracted values plus a request counter, keyed by flow slot.
type httpFlowState struct {
	requests  uint64
	lastURI   string
	host      []string
	url       []string
	cookie    []string
	userAgent []string
	xFwdFor   []string
	referer   []string
}

// HTTPSniff inspects TCP port-80 payload for HTTP request lines and the
// request header fields httpSniffer.c buffers per flow: Host, request
// target, Cookie, User-Agent, X-Forwarded-For and Referer. Payloads that
// do not start with a request method, responses included, are skipped. It
// depends on basicflow only in the sense that it is expected to run after
// the core columns are established, modeled by declaring a dependency on
// it.
type HTTPSniff struct {
	mu    sync.Mutex
	flows map[int32]*httpFlowState
}

// NewHTTPSniff constructs the HTTP sniffer plugin.
func NewHTTPSniff() *HTTPSniff {
	return &HTTPSniff{flows: make(map[int32]*httpFlowState)}
}

func (*HTTPSniff) Name() string   { return "httpsniff" }
func (*HTTPSniff) Version() string { return "1.0.0" }
func (*HTTPSniff) Number() int    { return 10 }
func (*HTTPSniff) Deps() []string { return []string{"basicflow"} }

func (*HTTPSniff) Schema() schema.Fields {
	strGroup := func(name string) schema.Field {
		return schema.Field{Name: name, Kind: schema.KindGroup, Group: schema.Fields{
			{Name: "value", Kind: schema.KindString},
		}}
	}
	return schema.Fields{
		{Name: "http_requests", Kind: schema.KindUint64},
		{Name: "http_last_uri", Kind: schema.KindString},
		strGroup("http_host"),
		strGroup("http_url"),
		strGroup("http_cookie"),
		strGroup("http_user_agent"),
		strGroup("http_x_forwarded_for"),
		strGroup("http_referer"),
	}
}

func (*HTTPSniff) OnFlowGen(rec *flowtable.Record, d *dissect.Descriptor) {}
func (*HTTPSniff) OnLayer2(slot int32, rec *flowtable.Record, d *dissect.Descriptor) {}

func (h *HTTPSniff) OnLayer4(slot int32, rec *flowtable.Record, d *dissect.Descriptor) {
	if d.Proto != 0x06 || d.SrcPort != 80 && d.DstPort != 80 {
		return
	}
	if d.L7Off < 0 || d.L7Off >= len(d.Raw) {
		return
	}
	payload := d.Raw[d.L7Off:]

	var method []byte
	for _, m := range httpMethods {
		if bytes.HasPrefix(payload, m) {
			method = m
			break
		}
	}
	if method == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.flows[slot]
	if st == nil {
		st = &httpFlowState{}
		h.flows[slot] = st
	}
	st.requests++
	st.lastURI = extractURI(payload[len(method):])

	headerBlock := payload
	if end := bytes.Index(payload, []byte("\r\n\r\n")); end >= 0 {
		headerBlock = payload[:end]
	}
	if len(headerBlock) > maxHeaderBlockBytes {
		rec.Status = rec.Status.Set(status.Alarm)
	}

	for _, line := range bytes.Split(headerBlock, []byte("\r\n")) {
		name, value, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		switch {
		case strings.EqualFold(name, "Host"):
			st.host = appendBounded(st.host, value)
		case strings.EqualFold(name, "Cookie"):
			st.cookie = appendBounded(st.cookie, value)
		case strings.EqualFold(name, "User-Agent"):
			st.userAgent = appendBounded(st.userAgent, value)
		case strings.EqualFold(name, "X-Forwarded-For"):
			st.xFwdFor = appendBounded(st.xFwdFor, value)
		case strings.EqualFold(name, "Referer"):
			st.referer = appendBounded(st.referer, value)
		}
	}
	st.url = appendBounded(st.url, st.lastURI)
}

// splitHeaderLine parses "Name: value" from one header line.
func splitHeaderLine(line []byte) (name, value string, ok bool) {
	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	return string(bytes.TrimSpace(line[:i])), string(bytes.TrimSpace(line[i+1:])), true
}

// appendBounded appends v to vals if it isn't already present, capped at
// httpDataCMax entries (httpSniffer.h's HTTP_DATA_C_MAX).
func appendBounded(vals []string, v string) []string {
	if v == "" || len(vals) >= httpDataCMax {
		return vals
	}
	for _, existing := range vals {
		if existing == v {
			return vals
		}
	}
	return append(vals, v)
}

func extractURI(rest []byte) string {
	sp := bytes.IndexByte(rest, ' ')
	if sp < 0 {
		if len(rest) > 128 {
			rest = rest[:128]
		}
		return string(rest)
	}
	if sp > 128 {
		sp = 128
	}
	return string(rest[:sp])
}

func (h *HTTPSniff) OnFlowTerm(slot int32, rec *flowtable.Record, buf *schema.Buffer) {
	h.mu.Lock()
	st := h.flows[slot]
	delete(h.flows, slot)
	h.mu.Unlock()

	if st == nil {
		st = &httpFlowState{}
	}
	buf.AppendUint64(st.requests)
	buf.AppendString(st.lastURI)
	buf.AppendGroup(stringRows(st.host))
	buf.AppendGroup(stringRows(st.url))
	buf.AppendGroup(stringRows(st.cookie))
	buf.AppendGroup(stringRows(st.userAgent))
	buf.AppendGroup(stringRows(st.xFwdFor))
	buf.AppendGroup(stringRows(st.referer))
}

func stringRows(vals []string) []schema.Buffer {
	rows := make([]schema.Buffer, len(vals))
	for i, v := range vals {
		rows[i].AppendString(v)
	}
	return rows
}
