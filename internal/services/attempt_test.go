package services

import (
	"testing"
	"time"
)

func TestIsEngagedHeartbeat(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	debounce := 10 * time.Second

	if !isEngagedHeartbeat(nil, now, debounce) {
		t.Fatalf("first heartbeat must count as engaged")
	}

	recent := now.Add(-5 * time.Second)
	if isEngagedHeartbeat(&recent, now, debounce) {
		t.Fatalf("heartbeat inside debounce window must not count")
	}

	boundary := now.Add(-10 * time.Second)
	if !isEngagedHeartbeat(&boundary, now, debounce) {
		t.Fatalf("heartbeat exactly at debounce must count")
	}

	old := now.Add(-time.Minute)
	if !isEngagedHeartbeat(&old, now, debounce) {
		t.Fatalf("heartbeat beyond debounce must count")
	}
}

func TestMergeAttemptMetadata_OverridesWin(t *testing.T) {
	base := map[string]interface{}{"heartbeat_count": 3, "source": "web"}
	overrides := map[string]interface{}{"heartbeat_count": 7, "device": "tablet"}

	merged := mergeAttemptMetadata(base, overrides)
	if merged["heartbeat_count"] != 7 {
		t.Fatalf("override lost: %v", merged["heartbeat_count"])
	}
	if merged["source"] != "web" || merged["device"] != "tablet" {
		t.Fatalf("merge dropped keys: %v", merged)
	}
}

func TestAttemptMetadataRoundTrip(t *testing.T) {
	at := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	raw, err := encodeAttemptMetadata(map[string]interface{}{
		"heartbeat_count":   4,
		"last_heartbeat_at": at.Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	meta := decodeAttemptMetadata(raw)
	if got := metadataInt(meta, "heartbeat_count"); got != 4 {
		t.Fatalf("heartbeat_count = %d, want 4", got)
	}
	last := metadataTime(meta, "last_heartbeat_at")
	if last == nil || !last.Equal(at) {
		t.Fatalf("last_heartbeat_at = %v, want %v", last, at)
	}
	if got := metadataInt(meta, "missing"); got != 0 {
		t.Fatalf("missing int key = %d, want 0", got)
	}
	if got := metadataTime(meta, "missing"); got != nil {
		t.Fatalf("missing time key = %v, want nil", got)
	}
}

func TestDecodeAttemptMetadata_Empty(t *testing.T) {
	meta := decodeAttemptMetadata(nil)
	if meta == nil || len(meta) != 0 {
		t.Fatalf("expected empty map, got %v", meta)
	}
}
