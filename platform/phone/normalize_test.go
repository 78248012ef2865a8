package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		region string
		want   string
		ok     bool
	}{
		{name: "dutch mobile without prefix", input: "06 12345678", region: "NL", want: "+31612345678", ok: true},
		{name: "already e164", input: "+31612345678", region: "US", want: "+31612345678", ok: true},
		{name: "garbage is trimmed", input: "  not a number ", region: "NL", want: "not a number", ok: false},
		{name: "empty", input: "   ", region: "NL", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.input, tt.region)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("Normalize(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}
