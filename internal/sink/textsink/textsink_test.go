package textsink

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
)

func TestSinkWriteHeaderAndRow(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, "")

	require.NoError(t, s.WriteHeader([]string{"sip", "dip", "bytes"}))

	var buf schema.Buffer
	buf.AppendIP(net.ParseIP("10.0.0.1"))
	buf.AppendIP(net.ParseIP("10.0.0.2"))
	buf.AppendUint64(1500)
	require.NoError(t, s.WriteRow(&buf))
	require.NoError(t, s.Flush())

	assert.Equal(t, "sip\tdip\tbytes\n10.0.0.1\t10.0.0.2\t1500\n", out.String())
}

func TestSinkCustomSeparator(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, ",")

	var buf schema.Buffer
	buf.AppendString("eth0")
	buf.AppendInt64(-1)
	require.NoError(t, s.WriteRow(&buf))
	require.NoError(t, s.Flush())

	assert.Equal(t, "eth0,-1\n", out.String())
}

func TestFormatGroup(t *testing.T) {
	var member schema.Buffer
	member.AppendString("a")
	member.AppendUint64(1)

	var buf schema.Buffer
	buf.AppendGroup([]schema.Buffer{member, member})

	assert.Equal(t, "a,1;a,1", formatValue(buf.Values[0]))
}
