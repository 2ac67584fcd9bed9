// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/internal/config"
	"github.com/pdiddy/paper-radar/internal/report"
	"github.com/pdiddy/paper-radar/pkg/types"
)

const filterReply = `{"matched": true, "matched_keywords": ["LLM Reasoning"], "relevance": "high", "reason": "relevant"}`

const analysisReply = `{"tldr": "New method.", "methodology": "m", "experiments": "e",
"contributions": ["c"], "innovations": [], "limitations": [], "affiliations": [],
"dataset_info": "d", "code_url": "", "quality_score": 7, "score_reason": "fine"}`

// fakeBackend serves the journal feed, the paper bodies, and an
// OpenAI-compatible endpoint whose replies depend on the request shape.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/feed":
			pub := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC1123Z)
			fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Open Journal</title>
<item>
  <title>A relevant paper</title>
  <link>%s/paper</link>
  <guid>%s/paper</guid>
  <description>About reasoning.</description>
  <pubDate>%s</pubDate>
</item>
</channel></rss>`, srv.URL, srv.URL, pub)

		case r.URL.Path == "/paper":
			w.Write([]byte("%PDF-1.5 body"))

		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			body, _ := io.ReadAll(r.Body)
			reply := filterReply
			if strings.Contains(string(body), "image_url") {
				reply = analysisReply
			} else if strings.Contains(string(body), "research area") {
				reply = "A quiet but promising day."
			}
			enc, _ := json.Marshal(reply)
			fmt.Fprintf(w, `{"choices":[{"message":{"content":%s}}]}`, enc)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pipelineConfig(t *testing.T, backendURL string) *config.Config {
	t.Helper()
	tier := types.TierConfig{
		APIBase:     backendURL,
		APIKey:      "k",
		Model:       "m",
		MaxRetries:  1,
		Concurrency: 2,
		Timeout:     5 * time.Second,
	}
	return &config.Config{
		Sources: types.SourcesConfig{
			HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test/0.1"},
			Journals: []types.JournalConfig{
				{Name: "Open Journal", FeedURL: backendURL + "/feed"},
			},
			LookbackWindow: 24 * time.Hour,
		},
		Fast:    tier,
		Capable: tier,
		Summary: tier,
		Store: types.StoreConfig{
			DBPath: filepath.Join(t.TempDir(), "reports.db"),
		},
		Output:   types.OutputConfig{Language: "English"},
		Keywords: []types.Keyword{{Name: "LLM Reasoning", Description: "reasoning methods"}},
	}
}

func TestRunEndToEnd(t *testing.T) {
	backend := fakeBackend(t)
	cfg := pipelineConfig(t, backend.URL)

	store, err := report.NewStore(cfg.Store)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rep, err := New(cfg, store, zerolog.Nop()).Run(context.Background(), "2026-09-01")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rep.TotalPapers != 1 || rep.MatchedPapers != 1 || rep.AnalyzedPapers != 1 {
		t.Fatalf("counts = %d/%d/%d", rep.TotalPapers, rep.MatchedPapers, rep.AnalyzedPapers)
	}

	papers := rep.PapersByKeyword["LLM Reasoning"]
	if len(papers) != 1 {
		t.Fatalf("papers = %d", len(papers))
	}
	p := papers[0]
	if !p.Analyzed || p.Analysis.TLDR != "New method." || p.Analysis.QualityScore != 7 {
		t.Errorf("analysis = %+v", p.Analysis)
	}
	if rep.Summaries["LLM Reasoning"] != "A quiet but promising day." {
		t.Errorf("summary = %q", rep.Summaries["LLM Reasoning"])
	}

	// The report is persisted and loadable.
	loaded, err := store.Load("2026-09-01")
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || loaded.MatchedPapers != 1 {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestRunSkipsPreviouslySeenPapers(t *testing.T) {
	backend := fakeBackend(t)
	cfg := pipelineConfig(t, backend.URL)

	store, err := report.NewStore(cfg.Store)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	p := New(cfg, store, zerolog.Nop())
	if _, err := p.Run(context.Background(), "2026-09-01"); err != nil {
		t.Fatalf("first run: %v", err)
	}

	rep, err := p.Run(context.Background(), "2026-09-02")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if rep.TotalPapers != 0 {
		t.Errorf("TotalPapers = %d, want 0 (paper already in history)", rep.TotalPapers)
	}
	if rep.Stats.PreviouslySeen != 1 {
		t.Errorf("PreviouslySeen = %d, want 1", rep.Stats.PreviouslySeen)
	}
}

func TestRunSourceFailureDegrades(t *testing.T) {
	backend := fakeBackend(t)
	cfg := pipelineConfig(t, backend.URL)
	cfg.Sources.Journals = append(cfg.Sources.Journals, types.JournalConfig{
		Name:    "Broken Journal",
		FeedURL: backend.URL + "/does-not-exist",
	})

	store, err := report.NewStore(cfg.Store)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rep, err := New(cfg, store, zerolog.Nop()).Run(context.Background(), "2026-09-01")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Stats.SourceErrors) != 1 || !strings.HasPrefix(rep.Stats.SourceErrors[0], "Broken Journal") {
		t.Errorf("SourceErrors = %v", rep.Stats.SourceErrors)
	}
	if rep.MatchedPapers != 1 {
		t.Errorf("healthy source should still contribute, matched = %d", rep.MatchedPapers)
	}
}
