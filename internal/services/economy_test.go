package services

import (
	"strings"
	"testing"
	"time"
)

func TestWeekStart(t *testing.T) {
	monday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		when time.Time
	}{
		{"monday maps to itself", time.Date(2026, 8, 31, 18, 45, 12, 0, time.UTC)},
		{"wednesday", time.Date(2026, 9, 2, 3, 0, 0, 0, time.UTC)},
		{"sunday maps to previous monday", time.Date(2026, 9, 6, 23, 59, 59, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := weekStart(tc.when)
			if !got.Equal(monday) {
				t.Fatalf("weekStart(%v) = %v, want %v", tc.when, got, monday)
			}
		})
	}
}

func TestReferralCode_Format(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		code, err := referralCode()
		if err != nil {
			t.Fatalf("referralCode: %v", err)
		}
		if !strings.HasPrefix(code, "REF") {
			t.Fatalf("code %q missing REF prefix", code)
		}
		if len(code) != 11 {
			t.Fatalf("code %q length = %d, want 11", code, len(code))
		}
		suffix := code[3:]
		if suffix != strings.ToUpper(suffix) {
			t.Fatalf("code %q suffix not uppercase", code)
		}
		for _, r := range suffix {
			if !strings.ContainsRune("0123456789ABCDEF", r) {
				t.Fatalf("code %q contains non-hex rune %q", code, r)
			}
		}
		if seen[code] {
			t.Fatalf("duplicate code %q after %d draws", code, i)
		}
		seen[code] = true
	}
}
