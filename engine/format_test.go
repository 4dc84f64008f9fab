package engine_test

import (
	"testing"

	"github.com/urenwerk/balance-engine/engine"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		hours float64
		want  string
	}{
		{8.5, "8u 30m"},
		{-1.25, "-1u 15m"},
		{0, "0u 0m"},
		{0.25, "0u 15m"},
		{-0.25, "-0u 15m"},
		{40, "40u 0m"},
		{7.999, "8u 0m"}, // minute rounding must not produce "7u 60m"
		{2.505, "2u 30m"},
	}
	for _, tc := range cases {
		if got := engine.FormatDuration(tc.hours); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.hours, got, tc.want)
		}
	}
}

func TestHoursFormat(t *testing.T) {
	h := engine.NewHours(2.75)
	if got := h.Format(); got != "2u 45m" {
		t.Errorf("Format() = %q, want \"2u 45m\"", got)
	}
}

func TestSafePercentage(t *testing.T) {
	// GIVEN: a regular contract
	pct, ok := engine.SafePercentage(engine.HoursFromInt(30), engine.HoursFromInt(40))
	if !ok || pct != 75 {
		t.Errorf("got (%d, %v), want (75, true)", pct, ok)
	}

	// GIVEN: a zero-hours contract - the division is undefined
	_, ok = engine.SafePercentage(engine.HoursFromInt(30), engine.ZeroHours())
	if ok {
		t.Error("expected ok=false for zero expected hours")
	}
}

func TestSafePercentageRounds(t *testing.T) {
	pct, ok := engine.SafePercentage(engine.NewHours(37.5), engine.HoursFromInt(40))
	if !ok || pct != 94 {
		t.Errorf("got (%d, %v), want (94, true)", pct, ok)
	}
}
