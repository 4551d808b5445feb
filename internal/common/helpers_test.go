package common

import (
	"testing"
	"time"
)

func TestFormatRupees(t *testing.T) {
	tests := []struct {
		name  string
		paise int64
		want  string
	}{
		{"zero", 0, "₹0.00"},
		{"sub rupee", 47, "₹0.47"},
		{"typical ad reward", 347, "₹3.47"},
		{"round amount", 5000, "₹50.00"},
		{"single digit paise", 2505, "₹25.05"},
		{"negative after penalty", -6000, "-₹60.00"},
		{"negative with paise", -101, "-₹1.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRupees(tt.paise); got != tt.want {
				t.Errorf("FormatRupees(%d) = %q, want %q", tt.paise, got, tt.want)
			}
		})
	}
}

func TestFormatWait(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"under a minute rounds up", 10 * time.Second, "1m"},
		{"exact minutes", 15 * time.Minute, "15m"},
		{"hours and minutes", 23*time.Hour + 15*time.Minute, "23h 15m"},
		{"exact hours", 2 * time.Hour, "2h 0m"},
		{"just below full cooldown", 24*time.Hour - time.Second, "23h 59m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatWait(tt.d); got != tt.want {
				t.Errorf("FormatWait(%s) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 30, 45, 0, time.UTC)
	if got := FormatDateTime(ts); got != "01.08.2026 12:30" {
		t.Errorf("FormatDateTime = %q", got)
	}
}
