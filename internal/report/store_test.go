// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/paper-radar/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{DBPath: filepath.Join(t.TempDir(), "reports.db")})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport(date string) *types.DailyReport {
	return &types.DailyReport{
		Date:     date,
		Keywords: []string{"LLM Reasoning"},
		PapersByKeyword: map[string][]types.AnalyzedPaper{
			"LLM Reasoning": nil,
		},
		Summaries:   map[string]string{"LLM Reasoning": "quiet day"},
		GeneratedAt: time.Now().UTC(),
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := testStore(t)

	if err := s.Save(testReport("2026-09-01")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load("2026-09-01")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.Date != "2026-09-01" {
		t.Fatalf("got %+v", got)
	}
	if got.Summaries["LLM Reasoning"] != "quiet day" {
		t.Errorf("summary = %q", got.Summaries["LLM Reasoning"])
	}
}

func TestLoadMissingDate(t *testing.T) {
	s := testStore(t)
	got, err := s.Load("1999-01-01")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestSaveReplacesSameDate(t *testing.T) {
	s := testStore(t)

	first := testReport("2026-09-01")
	first.TotalPapers = 5
	if err := s.Save(first); err != nil {
		t.Fatal(err)
	}

	second := testReport("2026-09-01")
	second.TotalPapers = 9
	if err := s.Save(second); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load("2026-09-01")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalPapers != 9 {
		t.Errorf("TotalPapers = %d, want the replacement", got.TotalPapers)
	}

	dates, err := s.Dates()
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 1 {
		t.Errorf("dates = %v, want a single entry", dates)
	}
}

func TestDatesMostRecentFirst(t *testing.T) {
	s := testStore(t)
	for _, d := range []string{"2026-08-30", "2026-09-01", "2026-08-31"} {
		if err := s.Save(testReport(d)); err != nil {
			t.Fatal(err)
		}
	}

	dates, err := s.Dates()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2026-09-01", "2026-08-31", "2026-08-30"}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("dates = %v, want %v", dates, want)
		}
	}

	latest, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.Date != "2026-09-01" {
		t.Errorf("Latest = %s", latest.Date)
	}
}

func TestLatestEmptyStore(t *testing.T) {
	s := testStore(t)
	latest, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Fatalf("got %+v, want nil", latest)
	}
}

func historyPaper(id string) types.MatchedPaper {
	return types.MatchedPaper{
		CandidatePaper:  types.CandidatePaper{Identity: id, Title: "T " + id, SourceName: "arxiv"},
		MatchedKeywords: []string{"LLM Reasoning"},
	}
}

func TestNewOnlyFiltersHistory(t *testing.T) {
	s := testStore(t)

	if err := s.Record([]types.MatchedPaper{historyPaper("a"), historyPaper("b")}, time.Now()); err != nil {
		t.Fatalf("Record: %v", err)
	}

	fresh, seen, err := s.NewOnly([]types.CandidatePaper{
		{Identity: "a", Title: "T a"},
		{Identity: "c", Title: "T c"},
	})
	if err != nil {
		t.Fatalf("NewOnly: %v", err)
	}
	if seen != 1 {
		t.Errorf("seen = %d, want 1", seen)
	}
	if len(fresh) != 1 || fresh[0].Identity != "c" {
		t.Errorf("fresh = %v", fresh)
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	s := testStore(t)
	for i := 0; i < 2; i++ {
		if err := s.Record([]types.MatchedPaper{historyPaper("a")}, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.HistoryCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("HistoryCount = %d, want 1", n)
	}
}

func TestCleanupRemovesOldEntries(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	if err := s.Record([]types.MatchedPaper{historyPaper("old")}, now.AddDate(0, 0, -120)); err != nil {
		t.Fatal(err)
	}
	if err := s.Record([]types.MatchedPaper{historyPaper("recent")}, now.AddDate(0, 0, -5)); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Cleanup(90, now)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	fresh, _, err := s.NewOnly([]types.CandidatePaper{{Identity: "old", Title: "T"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 1 {
		t.Error("cleaned paper should be treated as new again")
	}
}

func TestCleanupDisabled(t *testing.T) {
	s := testStore(t)
	if err := s.Record([]types.MatchedPaper{historyPaper("a")}, time.Now().AddDate(-1, 0, 0)); err != nil {
		t.Fatal(err)
	}
	removed, err := s.Cleanup(0, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0 when retention disabled", removed)
	}
}
