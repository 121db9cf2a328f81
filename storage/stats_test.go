package storage

import (
	"testing"
	"time"
)

func newTestStats(t *testing.T) *StatsStorage {
	t.Helper()
	s, err := NewStatsStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStatsStorage failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStatsSummary(t *testing.T) {
	s := newTestStats(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []AskEvent{
		{UID: "1_a", AIID: "gpt", Provider: "openai", Model: "gpt-4o", Success: true, AnswerChars: 100, Duration: time.Second, CreatedAt: base},
		{UID: "2_b", AIID: "gpt", Provider: "openai", Model: "gpt-4o", Success: true, AnswerChars: 50, Duration: 3 * time.Second, CreatedAt: base.Add(time.Hour)},
		{UID: "2_b", AIID: "gpt", Provider: "openai", Model: "gpt-4o", Success: false, ErrorType: "api_error", CreatedAt: base.Add(2 * time.Hour)},
		{UID: "2_b", AIID: "local", Provider: "ollama", Model: "llama3.1", Streamed: true, Success: true, AnswerChars: 10, Duration: 500 * time.Millisecond, CreatedAt: base},
	}
	for _, ev := range events {
		if err := s.Record(ev); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	summary, err := s.Summary()
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("expected 2 AIs, got %d", len(summary))
	}

	gpt := summary[0]
	if gpt.AIID != "gpt" || gpt.Requests != 3 || gpt.Failures != 1 || gpt.TotalChars != 150 {
		t.Errorf("unexpected gpt stats: %+v", gpt)
	}
	if gpt.AvgDuration < 1333*time.Millisecond || gpt.AvgDuration > 1334*time.Millisecond {
		t.Errorf("unexpected average duration %v", gpt.AvgDuration)
	}
	if !gpt.LastUsed.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("LastUsed = %v", gpt.LastUsed)
	}
	if summary[1].Provider != "ollama" {
		t.Errorf("unexpected second entry: %+v", summary[1])
	}
}

func TestStatsRecentAndClear(t *testing.T) {
	s := newTestStats(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ev := AskEvent{UID: "u", AIID: "gpt", Provider: "openai", Model: "m", Success: i%2 == 0, Streamed: true, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.Record(ev); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 || !recent[0].CreatedAt.Equal(base.Add(4*time.Minute)) {
		t.Errorf("unexpected recent events: %+v", recent)
	}
	if !recent[0].Success || recent[1].Success || !recent[0].Streamed {
		t.Errorf("flags not round-tripped: %+v", recent)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if summary, _ := s.Summary(); len(summary) != 0 {
		t.Errorf("expected no stats after clear, got %d", len(summary))
	}
}

func TestStatsReopenKeepsData(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStatsStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Record(AskEvent{UID: "u", AIID: "gpt", Provider: "openai", Model: "m", Success: true}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewStatsStorage(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	has, err := s.columnExists("ask_events", "error_type")
	if err != nil || !has {
		t.Errorf("migration column missing: %v %v", has, err)
	}
	if summary, _ := s.Summary(); len(summary) != 1 {
		t.Errorf("expected persisted event, got %d", len(summary))
	}
}
