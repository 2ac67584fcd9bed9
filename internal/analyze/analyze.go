// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze retrieves full text for matched papers and drives the
// capable multimodal tier to extract structured findings. This is the
// most expensive and failure-prone stage: every failure degrades one
// paper to its filter result with an explicit marker, never dropping it
// from the report.
package analyze

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/internal/llm"
	"github.com/pdiddy/paper-radar/internal/paywall"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// maxDocumentBytes guards against a feed pointing at something that is
// not a paper. Documents over this size fail the paper's analysis.
const maxDocumentBytes = 30 << 20

// Resolver obtains full text for a paywalled candidate. *paywall.Accessor
// implements it; tests supply a stub.
type Resolver interface {
	Resolve(ctx context.Context, candidate types.CandidatePaper) ([]byte, error)
	Enabled() bool
}

// Stage analyzes matched papers with a worker pool bounded more
// conservatively than the filter stage.
type Stage struct {
	tier        llm.Chatter
	resolver    Resolver
	client      *http.Client
	userAgent   string
	paywalled   map[string]bool // journal name → requires proxy
	concurrency int
	log         zerolog.Logger
}

// New builds the analysis stage. paywalled maps journal source names to
// whether their full text must go through the institutional proxy.
func New(tier llm.Chatter, resolver Resolver, client *http.Client, userAgent string, paywalled map[string]bool, concurrency int, log zerolog.Logger) *Stage {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Stage{
		tier:        tier,
		resolver:    resolver,
		client:      client,
		userAgent:   userAgent,
		paywalled:   paywalled,
		concurrency: concurrency,
		log:         log.With().Str("stage", "analyze").Logger(),
	}
}

// Analyze processes every matched paper and returns one AnalyzedPaper
// per input, in input order. Failed analyses keep the filter result and
// carry an error marker with NotStated placeholders.
func (s *Stage) Analyze(ctx context.Context, matched []types.MatchedPaper) []types.AnalyzedPaper {
	results := make([]types.AnalyzedPaper, len(matched))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = s.analyzeOne(ctx, matched[idx])
			}
		}()
	}

	for i := range matched {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	// Papers never scheduled (cancellation) still need their failure
	// markers filled in.
	analyzed := 0
	for i := range results {
		if results[i].Identity == "" {
			results[i] = failedPaper(matched[i], "analysis cancelled")
		}
		if results[i].Analyzed {
			analyzed++
		}
	}

	s.log.Info().
		Int("matched", len(matched)).
		Int("analyzed", analyzed).
		Int("failed", len(matched)-analyzed).
		Msg("analysis complete")
	return results
}

func (s *Stage) analyzeOne(ctx context.Context, p types.MatchedPaper) types.AnalyzedPaper {
	doc, err := s.fullText(ctx, p)
	if err != nil {
		s.log.Warn().Str("paper", p.Identity).Err(err).Msg("full text unavailable")
		return failedPaper(p, fmt.Sprintf("full text unavailable: %v", err))
	}
	if len(doc) > maxDocumentBytes {
		return failedPaper(p, fmt.Sprintf("document too large (%d bytes)", len(doc)))
	}

	prompt, err := renderExtractionPrompt(p)
	if err != nil {
		return failedPaper(p, fmt.Sprintf("rendering prompt: %v", err))
	}

	reply, err := s.tier.ChatWithPDF(ctx, prompt, base64.StdEncoding.EncodeToString(doc))
	if err != nil {
		s.log.Warn().Str("paper", p.Identity).Err(err).Msg("capable tier call failed")
		return failedPaper(p, fmt.Sprintf("inference failed: %v", err))
	}

	var ar analysisReply
	if err := llm.DecodeJSON(reply, &ar); err != nil {
		s.log.Warn().Str("paper", p.Identity).Err(err).Msg("unparseable analysis reply")
		return failedPaper(p, fmt.Sprintf("unparseable analysis: %v", err))
	}

	analysis := ar.toAnalysis()
	s.log.Debug().Str("paper", p.Identity).Float64("score", analysis.QualityScore).Msg("analyzed")
	return types.AnalyzedPaper{
		MatchedPaper: p,
		Analyzed:     true,
		Analysis:     analysis,
	}
}

// fullText fetches the paper's document: paywalled journals through the
// proxy accessor, everything else directly.
func (s *Stage) fullText(ctx context.Context, p types.MatchedPaper) ([]byte, error) {
	if p.SourceKind == types.SourceJournal && s.paywalled[p.SourceName] {
		if !s.resolver.Enabled() {
			return nil, &paywall.AccessError{Kind: paywall.CredentialsMissing}
		}
		return s.resolver.Resolve(ctx, p.CandidatePaper)
	}

	target := p.PDFURL
	if target == "" {
		target = p.AbstractURL
	}
	if target == "" {
		return nil, fmt.Errorf("no access URL")
	}
	return httputil.FetchBytes(ctx, s.client, target, s.userAgent, 0)
}

// analysisReply is the structured response expected from the capable
// tier. quality_score stays raw until scoring so a non-numeric reply
// degrades to 0 instead of failing the decode.
type analysisReply struct {
	TLDR          string          `json:"tldr"`
	Methodology   string          `json:"methodology"`
	Experiments   string          `json:"experiments"`
	Contributions []string        `json:"contributions"`
	Innovations   []string        `json:"innovations"`
	Limitations   []string        `json:"limitations"`
	Affiliations  []string        `json:"affiliations"`
	DatasetInfo   string          `json:"dataset_info"`
	CodeURL       string          `json:"code_url"`
	QualityScore  json.RawMessage `json:"quality_score"`
	ScoreReason   string          `json:"score_reason"`
}

func (r analysisReply) toAnalysis() types.Analysis {
	score, reason := parseScore(r.QualityScore, r.ScoreReason)
	a := types.Analysis{
		TLDR:          orNotStated(r.TLDR),
		Methodology:   orNotStated(r.Methodology),
		Experiments:   orNotStated(r.Experiments),
		Contributions: r.Contributions,
		Innovations:   r.Innovations,
		Limitations:   r.Limitations,
		Affiliations:  r.Affiliations,
		DatasetInfo:   orNotStated(r.DatasetInfo),
		CodeURL:       strings.TrimSpace(r.CodeURL),
		QualityScore:  score,
		ScoreReason:   orNotStated(reason),
	}
	if a.CodeURL == types.NotStated {
		a.CodeURL = ""
	}
	return a
}

// parseScore interprets the model's quality_score: numbers (or numeric
// strings) are clamped to [0,10]; anything else scores 0 with the raw
// text preserved in the reason.
func parseScore(raw json.RawMessage, reason string) (float64, string) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, reason
	}

	unquoted := strings.Trim(text, `"`)
	score, err := strconv.ParseFloat(strings.TrimSpace(unquoted), 64)
	if err != nil {
		if reason == "" {
			reason = unquoted
		} else {
			reason = unquoted + "; " + reason
		}
		return 0, reason
	}

	return clamp(score, 0, 10), reason
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func orNotStated(s string) string {
	if strings.TrimSpace(s) == "" {
		return types.NotStated
	}
	return s
}

// failedPaper keeps a matched paper in the pipeline with an explicit
// failure marker and placeholder analysis fields.
func failedPaper(p types.MatchedPaper, reason string) types.AnalyzedPaper {
	return types.AnalyzedPaper{
		MatchedPaper:  p,
		Analyzed:      false,
		Analysis:      placeholderAnalysis(),
		AnalysisError: reason,
	}
}

func placeholderAnalysis() types.Analysis {
	return types.Analysis{
		TLDR:        types.NotStated,
		Methodology: types.NotStated,
		Experiments: types.NotStated,
		DatasetInfo: types.NotStated,
		ScoreReason: types.NotStated,
	}
}
