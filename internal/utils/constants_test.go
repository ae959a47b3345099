package utils

import "testing"

func TestAlertSubject(t *testing.T) {
	tests := []struct {
		prefix, user, want string
	}{
		{"vitals.alerts", "u1", "vitals.alerts.u1"},
		{"vitals.alerts.", "u1", "vitals.alerts.u1"},
		{"", "u2", "vitals.alerts.u2"},
		{"clinic.alerts", "abc-123", "clinic.alerts.abc-123"},
	}
	for _, tt := range tests {
		if got := AlertSubject(tt.prefix, tt.user); got != tt.want {
			t.Errorf("AlertSubject(%q, %q) = %q, want %q", tt.prefix, tt.user, got, tt.want)
		}
	}
}
