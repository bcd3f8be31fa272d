package service

import (
	"testing"
	"time"
)

func TestPercentChange(t *testing.T) {
	cases := []struct {
		previous float64
		current  float64
		want     float64
	}{
		{0, 0, 0},
		{0, 10, 100},
		{100, 150, 50},
		{200, 100, -50},
	}

	for _, tc := range cases {
		if got := percentChange(tc.previous, tc.current); got != tc.want {
			t.Fatalf("percentChange(%v, %v) = %v, want %v", tc.previous, tc.current, got, tc.want)
		}
	}
}

func TestFormatChange(t *testing.T) {
	cases := []struct {
		value float64
		want  string
	}{
		{0, "0%"},
		{12.54, "+12.5%"},
		{-3.06, "-3.1%"},
		{100, "+100%"},
	}

	for _, tc := range cases {
		if got := formatChange(tc.value); got != tc.want {
			t.Fatalf("formatChange(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestMonthAndDayKeysUseSiteZone(t *testing.T) {
	// UTC 的 1 月 31 日 19 点在 Dhaka 已经是 2 月 1 日
	boundary := time.Date(2025, 1, 31, 19, 0, 0, 0, time.UTC)

	if got := monthKey(boundary); got != "2025-02" {
		t.Fatalf("expected month 2025-02, got %q", got)
	}
	if got := dayKey(boundary); got != "2025-02-01" {
		t.Fatalf("expected day 2025-02-01, got %q", got)
	}
}

func TestPreviousMonthKeyCrossesYear(t *testing.T) {
	january := time.Date(2025, 1, 15, 12, 0, 0, 0, siteZone)
	if got := previousMonthKey(january); got != "2024-12" {
		t.Fatalf("expected 2024-12, got %q", got)
	}
}
