package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   bool
		want  bool
		unset bool
	}{
		{name: "unset uses default", unset: true, def: true, want: true},
		{name: "true", value: "true", want: true},
		{name: "numeric on", value: "1", want: true},
		{name: "yes uppercase", value: "YES", want: true},
		{name: "on with spaces", value: "  on  ", want: true},
		{name: "false", value: "false", def: true, want: false},
		{name: "numeric off", value: "0", def: true, want: false},
		{name: "no", value: "no", def: true, want: false},
		{name: "garbage keeps default", value: "maybe", def: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "LIFEDRAFT_TEST_BOOL"
			if !tt.unset {
				t.Setenv(key, tt.value)
			}
			if got := ParseBoolEnv(key, tt.def); got != tt.want {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}
