// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-radar pipeline:
// candidate papers discovered from source feeds, filter and analysis
// outcomes, and the daily report persisted for the web viewer.
package types

import "time"

// SourceKind distinguishes preprint servers from peer-reviewed journals.
type SourceKind string

const (
	SourcePreprint SourceKind = "preprint"
	SourceJournal  SourceKind = "journal"
)

// NotStated is the placeholder for analysis fields the model did not
// populate. Downstream rendering shows it verbatim instead of a blank.
const NotStated = "not stated"

// CandidatePaper is one paper discovered from a source feed, before
// filtering. Identity is stable across re-fetches of the same paper:
// DOI when available, otherwise the source-native ID, otherwise a
// normalized-title fallback computed by the deduplicator.
type CandidatePaper struct {
	// Identity is the stable dedup key (e.g. "2301.07041" or
	// "nature-medicine:10.1038/s41591-024-1234-5").
	Identity string `json:"identity" yaml:"identity"`

	// Title is the paper title as published by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract or feed summary.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the publication or announcement date.
	Published time.Time `json:"published" yaml:"published"`

	// SourceKind is "preprint" or "journal".
	SourceKind SourceKind `json:"source_kind" yaml:"source_kind"`

	// SourceName identifies the adapter that produced this candidate
	// (e.g. "arxiv", "Nature Medicine").
	SourceName string `json:"source_name" yaml:"source_name"`

	// AbstractURL links to the paper's landing page.
	AbstractURL string `json:"abstract_url" yaml:"abstract_url"`

	// PDFURL links to the full text, when the source exposes one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// Categories lists source-native subject categories (e.g. "cs.CV").
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// MatchedPaper is a CandidatePaper plus the filter-stage outcome.
// Immutable once produced; only papers with non-empty MatchedKeywords
// reach the analysis stage.
type MatchedPaper struct {
	CandidatePaper `yaml:",inline"`

	// MatchedKeywords lists the configured keyword names the fast tier
	// matched. Always a subset of the active keyword set.
	MatchedKeywords []string `json:"matched_keywords" yaml:"matched_keywords"`

	// Relevance is the fast tier's self-reported match strength:
	// "high", "medium", or "low".
	Relevance string `json:"relevance,omitempty" yaml:"relevance,omitempty"`

	// MatchReason is the fast tier's one-line justification.
	MatchReason string `json:"match_reason,omitempty" yaml:"match_reason,omitempty"`
}

// Analysis holds the structured findings the capable tier extracts from a
// paper's full text. Every string field is either model output or the
// NotStated placeholder, never silently empty.
type Analysis struct {
	TLDR          string   `json:"tldr" yaml:"tldr"`
	Methodology   string   `json:"methodology" yaml:"methodology"`
	Experiments   string   `json:"experiments" yaml:"experiments"`
	Contributions []string `json:"contributions" yaml:"contributions"`
	Innovations   []string `json:"innovations" yaml:"innovations"`
	Limitations   []string `json:"limitations" yaml:"limitations"`
	Affiliations  []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
	DatasetInfo   string   `json:"dataset_info" yaml:"dataset_info"`
	CodeURL       string   `json:"code_url,omitempty" yaml:"code_url,omitempty"`

	// QualityScore is the model's 0-10 assessment, clamped on ingest.
	QualityScore float64 `json:"quality_score" yaml:"quality_score"`

	// ScoreReason justifies the score. When the model returned a
	// non-numeric score, this carries the raw text and the score is 0.
	ScoreReason string `json:"score_reason" yaml:"score_reason"`
}

// AnalyzedPaper is a MatchedPaper plus the analysis outcome. When the
// analysis stage exhausts retries the paper is kept with Analyzed=false
// and AnalysisError set; it still appears in the daily report.
type AnalyzedPaper struct {
	MatchedPaper `yaml:",inline"`

	// Analyzed reports whether deep analysis succeeded.
	Analyzed bool `json:"analyzed" yaml:"analyzed"`

	// Analysis holds the extracted findings. Filled with NotStated
	// placeholders when Analyzed is false.
	Analysis Analysis `json:"analysis" yaml:"analysis"`

	// AnalysisError describes why analysis failed (access failure,
	// inference failure); empty on success.
	AnalysisError string `json:"analysis_error,omitempty" yaml:"analysis_error,omitempty"`
}

// RunStats counts per-run failures surfaced as report metadata.
type RunStats struct {
	// SourceErrors lists per-adapter fetch failures as "name: error".
	SourceErrors []string `json:"source_errors,omitempty" yaml:"source_errors,omitempty"`

	// MalformedDropped counts candidates dropped by the deduplicator.
	MalformedDropped int `json:"malformed_dropped,omitempty" yaml:"malformed_dropped,omitempty"`

	// PreviouslySeen counts candidates skipped by the history check.
	PreviouslySeen int `json:"previously_seen,omitempty" yaml:"previously_seen,omitempty"`

	// FilterFailures counts papers treated as unmatched after the fast
	// tier exhausted retries.
	FilterFailures int `json:"filter_failures,omitempty" yaml:"filter_failures,omitempty"`

	// AnalysisFailures counts matched papers whose deep analysis failed.
	AnalysisFailures int `json:"analysis_failures,omitempty" yaml:"analysis_failures,omitempty"`
}

// DailyReport is the unit of persistence and the web viewer's API response.
// One instance is created per run and is immutable after persistence.
type DailyReport struct {
	// Date is the report date in YYYY-MM-DD form.
	Date string `json:"date" yaml:"date"`

	// Keywords is the configured keyword set active for this run, in
	// configuration order.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// PapersByKeyword groups each paper under every keyword it matched.
	// A paper matching several keywords appears under each of them.
	PapersByKeyword map[string][]AnalyzedPaper `json:"papers_by_keyword" yaml:"papers_by_keyword"`

	// Summaries maps keyword name to a narrative progress summary.
	Summaries map[string]string `json:"summaries" yaml:"summaries"`

	// TotalPapers counts deduplicated candidates for the day.
	TotalPapers int `json:"total_papers" yaml:"total_papers"`

	// MatchedPapers counts candidates that matched at least one keyword.
	MatchedPapers int `json:"matched_papers" yaml:"matched_papers"`

	// AnalyzedPapers counts matched papers whose deep analysis succeeded.
	AnalyzedPapers int `json:"analyzed_papers" yaml:"analyzed_papers"`

	// GeneratedAt records when the run produced this report.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// Stats carries per-run failure counters for operators.
	Stats RunStats `json:"stats" yaml:"stats"`
}
