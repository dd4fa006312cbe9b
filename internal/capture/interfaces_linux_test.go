//go:build linux

package capture

import (
	"testing"

	"github.com/fako1024/gotools/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListInterfaces(t *testing.T) {
	orig := hostLinks
	defer func() { hostLinks = orig }()

	stub := link.Links{
		&link.Link{Name: "eth0"},
		&link.Link{Name: "eth1"},
		&link.Link{Name: "lo"},
	}
	hostLinks = func(...string) (link.Links, error) {
		return stub, nil
	}

	names, err := ListInterfaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"eth0", "eth1", "lo"}, names)
}

func TestValidateInterfaceRejectsUnknown(t *testing.T) {
	orig := hostLinks
	defer func() { hostLinks = orig }()

	hostLinks = func(...string) (link.Links, error) {
		return link.Links{}, nil
	}

	assert.Error(t, validateInterface("doesnotexist0"))
}
