// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// MergeOutput holds the deduplicated candidate set and drop statistics.
type MergeOutput struct {
	Candidates       []types.CandidatePaper
	DupsRemoved      int
	MalformedDropped int
}

// Merge combines candidate lists from all adapters into a canonical set
// keyed by identity, with a normalized-title fallback key to catch the
// same paper surfacing from different sources under different IDs (e.g.
// an arXiv preprint and its journal version). When two records collide
// the richer one wins. Pure merge: no network or inference side effects.
//
// Output ordering is deterministic: published date descending, ties
// broken by identity lexical order. Malformed candidates (missing title
// or identity) are dropped and counted, never an error.
func Merge(lists ...[]types.CandidatePaper) MergeOutput {
	seen := make(map[string]int) // dedup key → index in merged
	var merged []types.CandidatePaper
	var out MergeOutput

	for _, list := range lists {
		for _, p := range list {
			if p.Identity == "" || strings.TrimSpace(p.Title) == "" {
				out.MalformedDropped++
				continue
			}

			idKey := "id:" + p.Identity
			titleKey := "title:" + normalizeTitle(p.Title)

			if idx, ok := seen[idKey]; ok {
				mergeInto(&merged[idx], p)
				out.DupsRemoved++
				continue
			}
			if idx, ok := seen[titleKey]; ok && titleKey != "title:" {
				mergeInto(&merged[idx], p)
				out.DupsRemoved++
				continue
			}

			idx := len(merged)
			merged = append(merged, p)
			seen[idKey] = idx
			if titleKey != "title:" {
				seen[titleKey] = idx
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Published.Equal(merged[j].Published) {
			return merged[i].Published.After(merged[j].Published)
		}
		return merged[i].Identity < merged[j].Identity
	})

	out.Candidates = merged
	return out
}

// mergeInto keeps the richer of two records for the same paper: a record
// with a PDF URL beats one without, and the longer abstract wins. Fields
// the kept record lacks are filled from the other.
func mergeInto(dst *types.CandidatePaper, src types.CandidatePaper) {
	if src.PDFURL != "" && dst.PDFURL == "" {
		// The src record can resolve full text; prefer it wholesale and
		// backfill from the old one.
		old := *dst
		*dst = src
		src = old
	}

	if len(src.Abstract) > len(dst.Abstract) {
		dst.Abstract = src.Abstract
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Published.IsZero() {
		dst.Published = src.Published
	}
	if dst.AbstractURL == "" {
		dst.AbstractURL = src.AbstractURL
	}
	if dst.PDFURL == "" {
		dst.PDFURL = src.PDFURL
	}
	dst.Categories = appendMissing(dst.Categories, src.Categories)
}

func appendMissing(dst, src []string) []string {
	have := make(map[string]bool, len(dst))
	for _, s := range dst {
		have[s] = true
	}
	for _, s := range src {
		if !have[s] {
			dst = append(dst, s)
		}
	}
	return dst
}

// normalizeTitle returns a lowercased, punctuation-stripped version of
// the title for fallback dedup keys.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
