// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/internal/llm"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Aggregator groups analyzed papers by keyword and writes per-keyword
// field summaries with the summary tier.
type Aggregator struct {
	tier     llm.Chatter
	language string
	log      zerolog.Logger
}

// NewAggregator builds the aggregation stage. language controls the
// summary output language and defaults to English.
func NewAggregator(tier llm.Chatter, language string, log zerolog.Logger) *Aggregator {
	if language == "" {
		language = "English"
	}
	return &Aggregator{
		tier:     tier,
		language: language,
		log:      log.With().Str("stage", "report").Logger(),
	}
}

// Input carries everything the aggregator needs to assemble a report.
type Input struct {
	Date     string
	Keywords []string
	Papers   []types.AnalyzedPaper
	Total    int
	Stats    types.RunStats
}

// Build assembles the daily report. A paper appears under every keyword
// it matched. Summary failures degrade to a placeholder line and never
// fail the report.
func (a *Aggregator) Build(ctx context.Context, in Input) *types.DailyReport {
	byKeyword := make(map[string][]types.AnalyzedPaper, len(in.Keywords))
	for _, kw := range in.Keywords {
		byKeyword[kw] = nil
	}
	for _, p := range in.Papers {
		for _, kw := range p.MatchedKeywords {
			byKeyword[kw] = append(byKeyword[kw], p)
		}
	}
	for kw := range byKeyword {
		sortPapers(byKeyword[kw])
	}

	summaries := make(map[string]string, len(in.Keywords))
	for _, kw := range in.Keywords {
		summaries[kw] = a.summarize(ctx, kw, byKeyword[kw])
	}

	analyzed := 0
	for _, p := range in.Papers {
		if p.Analyzed {
			analyzed++
		}
	}

	return &types.DailyReport{
		Date:            in.Date,
		Keywords:        in.Keywords,
		PapersByKeyword: byKeyword,
		Summaries:       summaries,
		TotalPapers:     in.Total,
		MatchedPapers:   len(in.Papers),
		AnalyzedPapers:  analyzed,
		GeneratedAt:     time.Now().UTC(),
		Stats:           in.Stats,
	}
}

func (a *Aggregator) summarize(ctx context.Context, keyword string, papers []types.AnalyzedPaper) string {
	analyzed := 0
	for _, p := range papers {
		if p.Analyzed {
			analyzed++
		}
	}
	if analyzed == 0 {
		return fmt.Sprintf("No new papers in the %q area today.", keyword)
	}

	prompt, err := renderSummaryPrompt(keyword, a.language, papers)
	if err != nil {
		a.log.Error().Str("keyword", keyword).Err(err).Msg("rendering summary prompt")
		return fmt.Sprintf("Summary unavailable for %q: %v", keyword, err)
	}

	summary, err := a.tier.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		a.log.Warn().Str("keyword", keyword).Err(err).Msg("summary generation failed")
		return fmt.Sprintf("Summary unavailable for %q: %v", keyword, err)
	}

	a.log.Debug().Str("keyword", keyword).Int("papers", analyzed).Msg("summary generated")
	return summary
}

// sortPapers orders a keyword's papers for presentation: analyzed
// papers by quality score descending, then newest first; failed
// analyses sink to the end.
func sortPapers(papers []types.AnalyzedPaper) {
	sort.SliceStable(papers, func(i, j int) bool {
		if papers[i].Analyzed != papers[j].Analyzed {
			return papers[i].Analyzed
		}
		if papers[i].Analysis.QualityScore != papers[j].Analysis.QualityScore {
			return papers[i].Analysis.QualityScore > papers[j].Analysis.QualityScore
		}
		return papers[i].Published.After(papers[j].Published)
	})
}
