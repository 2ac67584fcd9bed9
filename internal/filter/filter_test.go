// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/internal/llm"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// scriptedTier replies per paper title, keyed on the user prompt text.
type scriptedTier struct {
	mu      sync.Mutex
	replies map[string]string // title substring → reply
	err     error
	calls   int
}

func (m *scriptedTier) Chat(_ context.Context, messages []llm.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	user := messages[len(messages)-1].Content
	for key, reply := range m.replies {
		if strings.Contains(user, key) {
			return reply, nil
		}
	}
	return `{"matched": false, "relevance": "low", "reason": "no match"}`, nil
}

func (m *scriptedTier) ChatWithPDF(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("not used by the filter stage")
}

func testKeywords() []types.Keyword {
	return []types.Keyword{
		{Name: "LLM Reasoning", Description: "Chain of thought and related methods"},
		{Name: "Protein Folding", Description: "Structure prediction"},
	}
}

func testCandidate(id, title string) types.CandidatePaper {
	return types.CandidatePaper{Identity: id, Title: title, Abstract: "about " + title}
}

func TestFilterMatches(t *testing.T) {
	tier := &scriptedTier{replies: map[string]string{
		"Reasoning paper": `{"matched": true, "matched_keywords": ["LLM Reasoning"], "relevance": "high", "reason": "on point"}`,
	}}
	stage := New(tier, testKeywords(), 2, zerolog.Nop())

	out := stage.Filter(context.Background(), []types.CandidatePaper{
		testCandidate("1", "Reasoning paper"),
		testCandidate("2", "Unrelated paper"),
	})

	if out.Failures != 0 {
		t.Fatalf("Failures = %d", out.Failures)
	}
	if len(out.Matched) != 1 {
		t.Fatalf("matched %d papers, want 1", len(out.Matched))
	}
	m := out.Matched[0]
	if m.Identity != "1" || m.Relevance != "high" || m.MatchReason != "on point" {
		t.Errorf("matched = %+v", m)
	}
	if len(m.MatchedKeywords) != 1 || m.MatchedKeywords[0] != "LLM Reasoning" {
		t.Errorf("MatchedKeywords = %v", m.MatchedKeywords)
	}
}

func TestFilterDemotesLowRelevance(t *testing.T) {
	tier := &scriptedTier{replies: map[string]string{
		"Borderline": `{"matched": true, "matched_keywords": ["LLM Reasoning"], "relevance": "low", "reason": "tangential"}`,
	}}
	stage := New(tier, testKeywords(), 1, zerolog.Nop())

	out := stage.Filter(context.Background(), []types.CandidatePaper{testCandidate("1", "Borderline")})
	if len(out.Matched) != 0 || out.Failures != 0 {
		t.Fatalf("out = %+v, want clean non-match", out)
	}
}

func TestFilterDropsFabricatedKeywords(t *testing.T) {
	tier := &scriptedTier{replies: map[string]string{
		"Fabricated": `{"matched": true, "matched_keywords": ["Quantum Gravity"], "relevance": "high", "reason": "made up"}`,
		"Mixed":      `{"matched": true, "matched_keywords": ["Quantum Gravity", "Protein Folding"], "relevance": "medium", "reason": "partial"}`,
	}}
	stage := New(tier, testKeywords(), 1, zerolog.Nop())

	out := stage.Filter(context.Background(), []types.CandidatePaper{
		testCandidate("1", "Fabricated"),
		testCandidate("2", "Mixed"),
	})

	if out.Failures != 0 {
		t.Fatalf("Failures = %d", out.Failures)
	}
	if len(out.Matched) != 1 {
		t.Fatalf("matched %d papers, want 1", len(out.Matched))
	}
	if got := out.Matched[0].MatchedKeywords; len(got) != 1 || got[0] != "Protein Folding" {
		t.Errorf("MatchedKeywords = %v", got)
	}
}

func TestFilterCountsFailures(t *testing.T) {
	tier := &scriptedTier{err: errors.New("tier down")}
	stage := New(tier, testKeywords(), 3, zerolog.Nop())

	candidates := make([]types.CandidatePaper, 5)
	for i := range candidates {
		candidates[i] = testCandidate(fmt.Sprint(i), fmt.Sprintf("Paper %d", i))
	}

	out := stage.Filter(context.Background(), candidates)
	if len(out.Matched) != 0 {
		t.Errorf("matched = %v", out.Matched)
	}
	if out.Failures != 5 {
		t.Errorf("Failures = %d, want 5", out.Failures)
	}
}

func TestFilterUnparseableReply(t *testing.T) {
	tier := &scriptedTier{replies: map[string]string{
		"Garbled": "I am not able to produce structured output today.",
	}}
	stage := New(tier, testKeywords(), 1, zerolog.Nop())

	out := stage.Filter(context.Background(), []types.CandidatePaper{testCandidate("1", "Garbled")})
	if out.Failures != 1 || len(out.Matched) != 0 {
		t.Fatalf("out = %+v, want one failure", out)
	}
}

func TestRenderSystemPromptListsKeywords(t *testing.T) {
	prompt, err := renderSystemPrompt([]types.Keyword{
		{Name: "LLM Reasoning", Description: "desc here", Examples: []string{"chain of thought"}},
	})
	if err != nil {
		t.Fatalf("renderSystemPrompt: %v", err)
	}
	for _, want := range []string{"LLM Reasoning", "desc here", "chain of thought", "matched_keywords"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
