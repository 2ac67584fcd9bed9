// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter drives the fast inference tier to decide which candidate
// papers are relevant to the configured research keywords.
package filter

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/internal/llm"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Stage filters candidates through the fast tier with a bounded worker
// pool. Requests are independent; output order does not mirror input
// order, but every output identity comes from the input set.
type Stage struct {
	tier        llm.Chatter
	keywords    []types.Keyword
	concurrency int
	log         zerolog.Logger
}

// Output holds the matched papers and failure statistics.
type Output struct {
	Matched []types.MatchedPaper

	// Failures counts candidates excluded because the fast tier failed
	// after retries, including unparseable replies.
	Failures int
}

// New builds the filter stage. Concurrency below 1 is raised to 1.
func New(tier llm.Chatter, keywords []types.Keyword, concurrency int, log zerolog.Logger) *Stage {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Stage{
		tier:        tier,
		keywords:    keywords,
		concurrency: concurrency,
		log:         log.With().Str("stage", "filter").Logger(),
	}
}

// filterReply is the structured response expected from the fast tier.
type filterReply struct {
	Matched         bool     `json:"matched"`
	MatchedKeywords []string `json:"matched_keywords"`
	Relevance       string   `json:"relevance"`
	Reason          string   `json:"reason"`
}

// Filter classifies every candidate. A candidate whose inference call
// fails after retries is treated as unmatched and counted, never an
// error: one bad paper must not block the batch.
func (s *Stage) Filter(ctx context.Context, candidates []types.CandidatePaper) Output {
	systemPrompt, err := renderSystemPrompt(s.keywords)
	if err != nil {
		// Template execution over plain strings cannot fail in practice;
		// treat it as a full-batch filter failure if it somehow does.
		s.log.Error().Err(err).Msg("rendering filter prompt")
		return Output{Failures: len(candidates)}
	}

	jobs := make(chan types.CandidatePaper)
	var mu sync.Mutex
	var out Output

	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				matched, failed := s.filterOne(ctx, systemPrompt, p)
				mu.Lock()
				if failed {
					out.Failures++
				} else if matched != nil {
					out.Matched = append(out.Matched, *matched)
				}
				mu.Unlock()
			}
		}()
	}

	for _, p := range candidates {
		select {
		case jobs <- p:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	s.log.Info().
		Int("candidates", len(candidates)).
		Int("matched", len(out.Matched)).
		Int("failures", out.Failures).
		Msg("filtering complete")
	return out
}

// filterOne classifies a single candidate. Returns (nil, false) for a
// clean non-match, (paper, false) for a match, and (nil, true) when the
// tier failed after retries.
func (s *Stage) filterOne(ctx context.Context, systemPrompt string, p types.CandidatePaper) (*types.MatchedPaper, bool) {
	userPrompt, err := renderUserPrompt(p)
	if err != nil {
		s.log.Warn().Str("paper", p.Identity).Err(err).Msg("rendering prompt failed")
		return nil, true
	}

	reply, err := s.tier.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		s.log.Warn().Str("paper", p.Identity).Err(err).Msg("fast tier call failed, excluding paper")
		return nil, true
	}

	var fr filterReply
	if err := llm.DecodeJSON(reply, &fr); err != nil {
		s.log.Warn().Str("paper", p.Identity).Err(err).Msg("unparseable filter reply, excluding paper")
		return nil, true
	}

	// Weak matches are demoted to non-matches.
	if !fr.Matched || fr.Relevance == "low" {
		return nil, false
	}

	keywords := s.intersectKeywords(fr.MatchedKeywords)
	if len(keywords) == 0 {
		// The model claimed a match but named no configured keyword.
		s.log.Debug().Str("paper", p.Identity).Strs("claimed", fr.MatchedKeywords).Msg("match without known keyword, excluding")
		return nil, false
	}

	s.log.Debug().Str("paper", p.Identity).Strs("keywords", keywords).Str("relevance", fr.Relevance).Msg("matched")
	return &types.MatchedPaper{
		CandidatePaper:  p,
		MatchedKeywords: keywords,
		Relevance:       fr.Relevance,
		MatchReason:     fr.Reason,
	}, false
}

// intersectKeywords keeps only configured keyword names, preserving
// configuration order and ignoring fabricated ones.
func (s *Stage) intersectKeywords(claimed []string) []string {
	claimedSet := make(map[string]bool, len(claimed))
	for _, name := range claimed {
		claimedSet[name] = true
	}
	var keywords []string
	for _, kw := range s.keywords {
		if claimedSet[kw.Name] {
			keywords = append(keywords, kw.Name)
		}
	}
	return keywords
}
