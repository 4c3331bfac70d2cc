package services

import (
	"testing"

	"github.com/pylearnhq/pylearn-backend/internal/config"
)

func TestRequiredDwellSeconds(t *testing.T) {
	cfg := config.Default().Integrity

	cases := []struct {
		estimatedMinutes int
		want             int
	}{
		{0, 45},
		{1, 45},
		{2, 45},
		{3, 60},
		{10, 200},
	}
	for _, tc := range cases {
		if got := requiredDwellSeconds(tc.estimatedMinutes, cfg); got != tc.want {
			t.Fatalf("requiredDwellSeconds(%d) = %d, want %d", tc.estimatedMinutes, got, tc.want)
		}
	}
}

func TestIntegrityPassed(t *testing.T) {
	cases := []struct {
		name              string
		dwell             int
		required          int
		challengeVerified bool
		engaged           int
		want              bool
	}{
		{"all evidence present", 120, 60, true, 2, true},
		{"dwell too short", 30, 60, true, 5, false},
		{"challenge unverified", 120, 60, false, 5, false},
		{"too few engaged heartbeats", 120, 60, true, 1, false},
		{"exact boundaries pass", 60, 60, true, 2, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := integrityPassed(tc.dwell, tc.required, tc.challengeVerified, tc.engaged, 2)
			if got != tc.want {
				t.Fatalf("integrityPassed = %v, want %v", got, tc.want)
			}
		})
	}
}
