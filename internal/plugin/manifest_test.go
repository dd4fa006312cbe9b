package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeManifest(t *testing.T) {
	m, err := DecodeManifest([]byte(`{"allow":["dns","http"],"deny":["stp"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"dns", "http"}, m.Allow)
	assert.Equal(t, []string{"stp"}, m.Deny)
}

func TestManifestAllowedEmptyAllowList(t *testing.T) {
	m := Manifest{Deny: []string{"stp"}}
	assert.True(t, m.Allowed("dns"))
	assert.False(t, m.Allowed("stp"))
}

func TestManifestAllowedRespectsAllowList(t *testing.T) {
	m := Manifest{Allow: []string{"dns"}}
	assert.True(t, m.Allowed("dns"))
	assert.False(t, m.Allowed("http"))
}

func TestManifestDenyWinsOverAllow(t *testing.T) {
	m := Manifest{Allow: []string{"dns"}, Deny: []string{"dns"}}
	assert.False(t, m.Allowed("dns"))
}
