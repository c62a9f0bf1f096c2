package upgrade

import (
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name   string
		status SchemaStatus
		want   string
	}{
		{"dirty", SchemaStatus{CurrentVersion: 3, Dirty: true, RequiredVersion: 1}, "migrate force 2"},
		{"ahead", SchemaStatus{CurrentVersion: 5, RequiredVersion: 1}, "newer than this binary"},
		{"outdated", SchemaStatus{CurrentVersion: 0, RequiredVersion: 1, NeedsMigration: true}, "migrate up"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatError(&tt.status); !strings.Contains(got, tt.want) {
				t.Errorf("FormatError = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
