package capture

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	in := "trace.0.pcap\n# comment\n\n  trace.1.pcap  \n#trace.skip.pcap\ntrace.2.pcap\n"
	paths, err := parseList(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"trace.0.pcap", "trace.1.pcap", "trace.2.pcap"}, paths)
}

func TestParseListEmpty(t *testing.T) {
	paths, err := parseList(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, paths)
}
