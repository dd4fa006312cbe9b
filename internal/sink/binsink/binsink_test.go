package binsink

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
)

func TestSinkWriteAndReadRow(t *testing.T) {
	var out bytes.Buffer
	s := New(&out)

	var buf schema.Buffer
	buf.AppendIP(net.ParseIP("10.0.0.1"))
	buf.AppendUint64(1500)
	buf.AppendString("eth0")
	buf.AppendTimestamp(1234)

	require.NoError(t, s.WriteRow(&buf))
	require.NoError(t, s.Flush())

	values, err := ReadRow(&out)
	require.NoError(t, err)
	require.Len(t, values, 4)

	assert.Equal(t, schema.KindIP, values[0].Kind)
	assert.True(t, net.ParseIP("10.0.0.1").Equal(values[0].IP))
	assert.Equal(t, uint64(1500), values[1].Uint)
	assert.Equal(t, "eth0", values[2].Str)
	assert.Equal(t, int64(1234), values[3].TS)
}

func TestSinkWriteAndReadGroup(t *testing.T) {
	var out bytes.Buffer
	s := New(&out)

	var member schema.Buffer
	member.AppendString("a")
	member.AppendInt64(-7)

	var buf schema.Buffer
	buf.AppendGroup([]schema.Buffer{member, member})

	require.NoError(t, s.WriteRow(&buf))
	require.NoError(t, s.Flush())

	values, err := ReadRow(&out)
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, schema.KindGroup, values[0].Kind)
	require.Len(t, values[0].Group, 2)
	assert.Equal(t, "a", values[0].Group[0].Values[0].Str)
	assert.Equal(t, int64(-7), values[0].Group[1].Values[1].Int)
}

func TestReadRowRejectsBadMagic(t *testing.T) {
	_, err := ReadRow(bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
	assert.Error(t, err)
}

func TestEncoderRoundTrip(t *testing.T) {
	enc := NewEncoder()
	data := bytes.Repeat([]byte("flowmeter-binsink-row-payload-"), 32)

	compressed, err := enc.Compress(data)
	require.NoError(t, err)

	out, err := Decompress(compressed, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
