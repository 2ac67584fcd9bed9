// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline wires the daily run: fetch, dedupe, filter, analyze,
// aggregate, persist. Only configuration and persistence problems abort
// a run; every other failure degrades the report and is counted in its
// stats.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/internal/analyze"
	"github.com/pdiddy/paper-radar/internal/config"
	"github.com/pdiddy/paper-radar/internal/filter"
	"github.com/pdiddy/paper-radar/internal/llm"
	"github.com/pdiddy/paper-radar/internal/paywall"
	"github.com/pdiddy/paper-radar/internal/report"
	"github.com/pdiddy/paper-radar/internal/source"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Pipeline owns one run of the daily paper flow.
type Pipeline struct {
	cfg   *config.Config
	store *report.Store
	log   zerolog.Logger
}

// New builds a pipeline against an open report store.
func New(cfg *config.Config, store *report.Store, log zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, store: store, log: log.With().Str("component", "pipeline").Logger()}
}

// Run executes the full pipeline for the given date (YYYY-MM-DD; empty
// means today, UTC) and persists the resulting report. The report is
// saved only after every stage has finished, so a stored report is
// always complete.
func (p *Pipeline) Run(ctx context.Context, date string) (*types.DailyReport, error) {
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	started := time.Now()
	p.log.Info().Str("date", date).Msg("starting run")

	var stats types.RunStats

	// Fetch.
	candidates, fetchErrs := p.fetch(ctx)
	stats.SourceErrors = fetchErrs

	// Dedupe within the run, then against history.
	merged := source.Merge(candidates)
	stats.MalformedDropped = merged.MalformedDropped

	fresh, seen, err := p.store.NewOnly(merged.Candidates)
	if err != nil {
		return nil, fmt.Errorf("checking paper history: %w", err)
	}
	stats.PreviouslySeen = seen
	p.log.Info().
		Int("fetched", len(candidates)).
		Int("unique", len(merged.Candidates)).
		Int("new", len(fresh)).
		Msg("candidates collected")

	// Filter with the fast tier.
	fastTier := llm.New(p.cfg.Fast)
	filterStage := filter.New(fastTier, p.cfg.Keywords, p.cfg.Fast.Concurrency, p.log)
	filtered := filterStage.Filter(ctx, fresh)
	stats.FilterFailures = filtered.Failures

	// Analyze with the capable tier.
	analyzed := p.analyze(ctx, filtered.Matched)
	for _, a := range analyzed {
		if !a.Analyzed {
			stats.AnalysisFailures++
		}
	}

	// Aggregate and summarize.
	summaryTier := llm.New(p.cfg.Summary)
	agg := report.NewAggregator(summaryTier, p.cfg.Output.Language, p.log)
	rep := agg.Build(ctx, report.Input{
		Date:     date,
		Keywords: p.cfg.KeywordNames(),
		Papers:   analyzed,
		Total:    len(fresh),
		Stats:    stats,
	})

	// Persist. Failures here are fatal: a run that cannot record its
	// output has not happened.
	if err := p.store.Save(rep); err != nil {
		return nil, fmt.Errorf("persisting report: %w", err)
	}
	if err := p.store.Record(filtered.Matched, time.Now()); err != nil {
		return nil, fmt.Errorf("recording paper history: %w", err)
	}
	if n, err := p.store.Cleanup(p.cfg.Store.HistoryRetentionDays, time.Now()); err != nil {
		p.log.Warn().Err(err).Msg("history cleanup failed")
	} else if n > 0 {
		p.log.Info().Int64("removed", n).Msg("history cleaned")
	}

	if p.cfg.Store.MarkdownDir != "" {
		if path, err := report.SaveMarkdown(rep, p.cfg.Store.MarkdownDir); err != nil {
			p.log.Warn().Err(err).Msg("markdown digest failed")
		} else {
			p.log.Info().Str("path", path).Msg("markdown digest written")
		}
	}

	p.log.Info().
		Str("date", date).
		Int("total", rep.TotalPapers).
		Int("matched", rep.MatchedPapers).
		Int("analyzed", rep.AnalyzedPapers).
		Dur("elapsed", time.Since(started)).
		Msg("run complete")
	return rep, nil
}

// fetch collects candidates from every configured source. Per-source
// failures are returned as strings for the report stats.
func (p *Pipeline) fetch(ctx context.Context) ([]types.CandidatePaper, []string) {
	client := &http.Client{Timeout: p.cfg.Sources.Timeout}

	registry := source.NewRegistry()
	if len(p.cfg.Sources.ArxivCategories) > 0 {
		registry.Register(&source.ArxivAdapter{
			Client:     client,
			Categories: p.cfg.Sources.ArxivCategories,
			MaxResults: p.cfg.Sources.MaxPerSource,
			UserAgent:  p.cfg.Sources.UserAgent,
		})
	}
	for _, j := range p.cfg.Sources.Journals {
		registry.Register(&source.JournalAdapter{
			Client:     client,
			Journal:    j,
			MaxResults: p.cfg.Sources.MaxPerSource,
			UserAgent:  p.cfg.Sources.UserAgent,
		})
	}

	out := registry.FetchAll(ctx, p.cfg.Sources.LookbackWindow, p.log)
	return out.Candidates, out.SourceErrors
}

func (p *Pipeline) analyze(ctx context.Context, matched []types.MatchedPaper) []types.AnalyzedPaper {
	accessor := paywall.New(p.cfg.Paywall, p.log)

	paywalled := make(map[string]bool, len(p.cfg.Sources.Journals))
	for _, j := range p.cfg.Sources.Journals {
		paywalled[j.Name] = j.Paywalled
	}

	capableTier := llm.New(p.cfg.Capable)
	client := &http.Client{Timeout: p.cfg.Sources.Timeout}
	stage := analyze.New(
		capableTier,
		accessor,
		client,
		p.cfg.Sources.UserAgent,
		paywalled,
		p.cfg.Capable.Concurrency,
		p.log,
	)
	return stage.Analyze(ctx, matched)
}
