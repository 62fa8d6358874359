package metrics

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/readings", "/readings"},
		{"/quota", "/quota"},
		{"/files/readings/0b0e7f62-9c1e-4c53-a2c5-55a62ca84b34/card.png", "/files/{key}"},
		{"/readings/0b0e7f62-9c1e-4c53-a2c5-55a62ca84b34", "/readings/{id}"},
		{"/health", "/health"},
	}

	for _, tc := range tests {
		if got := normalizePath(tc.path); got != tc.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
