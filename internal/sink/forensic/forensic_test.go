package forensic

import (
	"bytes"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavanyaayna9/flowmeter/pkg/capinfo"
)

func TestWriteRowNoDump(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, "", 0)

	pkt := capinfo.Packet{SrcIP: net.ParseIP("10.0.0.1"), DstIP: net.ParseIP("10.0.0.2"), SrcPort: 1234, DstPort: 80, Proto: 6}
	require.NoError(t, s.WriteRow(7, pkt, []string{"basicflow"}, nil))
	require.NoError(t, s.Flush())

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "7\t"))
	assert.Contains(t, line, "10.0.0.1")
	assert.Contains(t, line, "basicflow")
}

func TestWriteRowWithDump(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, "", 4)

	pkt := capinfo.Packet{SrcIP: net.ParseIP("10.0.0.1"), DstIP: net.ParseIP("10.0.0.2")}
	require.NoError(t, s.WriteRow(1, pkt, nil, []byte("GET / HTTP/1.1")))
	require.NoError(t, s.Flush())

	assert.Contains(t, buf.String(), "00000000")
}
