package capinfo_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavanyaayna9/flowmeter/internal/dissect"
	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/pkg/capinfo"
)

func TestFromDescriptor(t *testing.T) {
	d := dissect.NewDescriptor(make([]byte, 64), 64, 64)
	d.SrcIP = net.ParseIP("192.0.2.1")
	d.DstIP = net.ParseIP("192.0.2.2")
	d.SrcPort, d.DstPort = 1111, 80
	d.Proto = 6

	var view capinfo.DescriptorView = d
	pkt := capinfo.FromDescriptor(view, 1_000_000_000)
	assert.Equal(t, "192.0.2.1", pkt.SrcIP.String())
	assert.Equal(t, uint16(1111), pkt.SrcPort)
	require.Equal(t, int64(1), pkt.Timestamp.Unix())
}

func TestFromRecord(t *testing.T) {
	ft := flowtable.New(4)
	key := flowtable.BuildV4(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), 1234, 80, 6, 0, false)
	_, rec, err := ft.Create(key, 5_000_000_000, func() bool { return false })
	require.NoError(t, err)
	rec.Bytes, rec.Packets = 100, 2

	var view capinfo.RecordView = rec
	flow := capinfo.FromRecord(view)
	assert.Equal(t, uint64(100), flow.Bytes)
	assert.Equal(t, uint64(2), flow.Packets)
}
