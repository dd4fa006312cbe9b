package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRollingSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    RollingSpec
		wantErr bool
	}{
		{
			name: "base only",
			spec: "/cap/trace",
			want: RollingSpec{Base: "/cap/trace", Sep: "."},
		},
		{
			name: "custom separator",
			spec: "/cap/trace:_",
			want: RollingSpec{Base: "/cap/trace", Sep: "_"},
		},
		{
			name: "separator and stop",
			spec: "/cap/trace:_,99",
			want: RollingSpec{Base: "/cap/trace", Sep: "_", Stop: 99, HasStop: true},
		},
		{
			name: "stop without custom separator",
			spec: "/cap/trace,5",
			want: RollingSpec{Base: "/cap/trace", Sep: ".", Stop: 5, HasStop: true},
		},
		{
			name:    "empty",
			spec:    "",
			wantErr: true,
		},
		{
			name:    "non-numeric stop",
			spec:    "/cap/trace,abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRollingSpec(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRollingSpecPathFor(t *testing.T) {
	rs := RollingSpec{Base: "/cap/trace", Sep: "_"}
	assert.Equal(t, "/cap/trace_0", rs.pathFor(0))
	assert.Equal(t, "/cap/trace_12", rs.pathFor(12))
}
