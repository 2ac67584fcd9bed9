// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"testing"
	"time"

	"github.com/pdiddy/paper-radar/pkg/types"
)

func candidate(id, title string, published time.Time) types.CandidatePaper {
	return types.CandidatePaper{
		Identity:   id,
		Title:      title,
		Published:  published,
		SourceKind: types.SourcePreprint,
		SourceName: "arxiv",
	}
}

func TestMergeDedupByIdentity(t *testing.T) {
	now := time.Now()
	a := candidate("2301.00001", "Paper One", now)
	b := candidate("2301.00001", "Paper One", now)
	b.Abstract = "a longer abstract than the first record had"

	out := Merge([]types.CandidatePaper{a}, []types.CandidatePaper{b})
	if len(out.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(out.Candidates))
	}
	if out.DupsRemoved != 1 {
		t.Errorf("DupsRemoved = %d, want 1", out.DupsRemoved)
	}
	if out.Candidates[0].Abstract != b.Abstract {
		t.Errorf("longer abstract should win, got %q", out.Candidates[0].Abstract)
	}
}

func TestMergeDedupByTitleAcrossSources(t *testing.T) {
	now := time.Now()

	arxiv := candidate("2301.00001", "Scaling Laws, Revisited!", now)
	arxiv.PDFURL = "https://arxiv.org/pdf/2301.00001"
	arxiv.Abstract = "full arxiv abstract text"

	journal := candidate("nature:10.1038/x", "Scaling laws revisited", now.Add(-time.Hour))
	journal.SourceKind = types.SourceJournal
	journal.SourceName = "Nature"
	journal.AbstractURL = "https://nature.com/x"

	out := Merge([]types.CandidatePaper{journal}, []types.CandidatePaper{arxiv})
	if len(out.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(out.Candidates))
	}

	// The record that can resolve full text wins; fields it lacks are
	// backfilled from the other.
	got := out.Candidates[0]
	if got.Identity != "2301.00001" {
		t.Errorf("Identity = %q, want the arXiv record", got.Identity)
	}
	if got.PDFURL == "" {
		t.Error("PDFURL lost in merge")
	}
	if got.Abstract != "full arxiv abstract text" {
		t.Errorf("Abstract = %q", got.Abstract)
	}
}

func TestMergeDropsMalformed(t *testing.T) {
	now := time.Now()
	out := Merge([]types.CandidatePaper{
		candidate("", "No identity", now),
		candidate("id-1", "   ", now),
		candidate("id-2", "Kept", now),
	})
	if len(out.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(out.Candidates))
	}
	if out.MalformedDropped != 2 {
		t.Errorf("MalformedDropped = %d, want 2", out.MalformedDropped)
	}
}

func TestMergeOrdering(t *testing.T) {
	now := time.Now()
	out := Merge([]types.CandidatePaper{
		candidate("b", "Older", now.Add(-2*time.Hour)),
		candidate("c", "Newest", now),
		candidate("a", "Also older", now.Add(-2*time.Hour)),
	})

	got := make([]string, len(out.Candidates))
	for i, p := range out.Candidates {
		got[i] = p.Identity
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Scaling Laws, Revisited!", "scaling laws revisited"},
		{"  Whitespace\nheavy  title ", "whitespace heavy title"},
		{"MixedCASE", "mixedcase"},
	}
	for _, tt := range tests {
		if got := normalizeTitle(tt.in); got != tt.want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
