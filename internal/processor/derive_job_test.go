package processor

import (
	"encoding/json"
	"testing"
	"time"
)

func TestJobPayload_Unmarshal(t *testing.T) {
	raw := []byte(`{"replay_id":"7d444840-9dc0-11d1-b245-5ffdce74fad2","scheduled_match_id":17,"fallback_category":"2v2"}`)

	var job JobPayload
	if err := json.Unmarshal(raw, &job); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if job.ReplayID != "7d444840-9dc0-11d1-b245-5ffdce74fad2" {
		t.Fatalf("replay id = %q", job.ReplayID)
	}
	if job.ScheduledMatchID != 17 {
		t.Fatalf("scheduled match id = %d", job.ScheduledMatchID)
	}
	if job.FallbackCategory != "2v2" {
		t.Fatalf("fallback category = %q", job.FallbackCategory)
	}
}

func TestJobOptions_FallbackDatetime(t *testing.T) {
	job := JobPayload{
		ScheduledMatchID: 17,
		FallbackDatetime: "2025-06-01T18:30:00Z",
		FallbackCategory: "2v2",
	}

	opts := jobOptions(job)

	if opts.MatchID != 17 {
		t.Fatalf("match id = %d", opts.MatchID)
	}
	want := time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)
	if !opts.PlayedAt.Equal(want) {
		t.Fatalf("played at = %v, want %v", opts.PlayedAt, want)
	}
	if opts.Category != "2v2" {
		t.Fatalf("category = %q", opts.Category)
	}
}

func TestJobOptions_InvalidDatetimeIgnored(t *testing.T) {
	opts := jobOptions(JobPayload{FallbackDatetime: "yesterday"})
	if !opts.PlayedAt.IsZero() {
		t.Fatalf("played at = %v, want zero", opts.PlayedAt)
	}
}
