// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivAdapter lists recent submissions in the configured arXiv
// categories via the Atom API.
type ArxivAdapter struct {
	Client     *http.Client
	Categories []string
	MaxResults int
	UserAgent  string
}

// Name returns the adapter identifier.
func (a *ArxivAdapter) Name() string { return "arxiv" }

// Fetch queries the arXiv API for the newest submissions in the
// configured categories and keeps those published within the lookback
// window.
func (a *ArxivAdapter) Fetch(ctx context.Context, window time.Duration) ([]types.CandidatePaper, error) {
	if len(a.Categories) == 0 {
		return nil, nil
	}

	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = 200
	}

	var parts []string
	for _, cat := range a.Categories {
		parts = append(parts, "cat:"+cat)
	}
	query := strings.Join(parts, "+OR+")

	url := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=submittedDate&sortOrder=descending",
		arxivAPIBase, query, maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	cutoff := time.Now().Add(-window)
	var papers []types.CandidatePaper
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		published, parseErr := time.Parse(time.RFC3339, entry.Published)
		if parseErr == nil && window > 0 && published.Before(cutoff) {
			// Entries are newest-first; everything after this is older.
			break
		}

		p := types.CandidatePaper{
			Identity:    arxivID,
			Title:       collapseWhitespace(entry.Title),
			Abstract:    collapseWhitespace(entry.Summary),
			Published:   published,
			SourceKind:  types.SourcePreprint,
			SourceName:  "arxiv",
			AbstractURL: "https://arxiv.org/abs/" + arxivID,
			PDFURL:      "https://arxiv.org/pdf/" + arxivID,
		}
		for _, au := range entry.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(au.Name))
		}
		for _, c := range entry.Categories {
			if c.Term != "" {
				p.Categories = append(p.Categories, c.Term)
			}
		}

		papers = append(papers, p)
	}
	return capCandidates(papers, a.MaxResults), nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// collapseWhitespace trims and folds internal newlines produced by the
// Atom feed's hard-wrapped fields.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
