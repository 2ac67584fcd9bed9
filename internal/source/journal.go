// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// JournalAdapter polls one journal's RSS or Atom feed. Feed parsing is
// delegated to gofeed, which handles both formats and the usual
// malformed-date variations.
type JournalAdapter struct {
	Client     *http.Client
	Journal    types.JournalConfig
	MaxResults int
	UserAgent  string
}

// Name returns the journal's display name.
func (a *JournalAdapter) Name() string { return a.Journal.Name }

// doiPattern matches a DOI inside a feed link or GUID.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s"<>?#]+`)

// htmlTagPattern strips markup that journal feeds embed in abstracts.
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// Fetch parses the journal feed and keeps items published within the
// lookback window. Identity is "<journal-slug>:<doi>" when a DOI can be
// recovered from the item, otherwise the item GUID or link.
func (a *JournalAdapter) Fetch(ctx context.Context, window time.Duration) ([]types.CandidatePaper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.Journal.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	slug := Slugify(a.Journal.Name)
	cutoff := time.Now().Add(-window)

	var papers []types.CandidatePaper
	for _, item := range feed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}
		if window > 0 && !published.IsZero() && published.Before(cutoff) {
			continue
		}

		p := types.CandidatePaper{
			Identity:    slug + ":" + itemIdentity(item),
			Title:       strings.TrimSpace(item.Title),
			Abstract:    cleanAbstract(item.Description),
			Published:   published,
			SourceKind:  types.SourceJournal,
			SourceName:  a.Journal.Name,
			AbstractURL: item.Link,
		}
		for _, au := range item.Authors {
			if au != nil && au.Name != "" {
				p.Authors = append(p.Authors, au.Name)
			}
		}
		for _, cat := range item.Categories {
			if cat != "" {
				p.Categories = append(p.Categories, cat)
			}
		}

		papers = append(papers, p)
	}
	return capCandidates(papers, a.MaxResults), nil
}

// itemIdentity extracts the most stable key a feed item offers: DOI,
// then GUID, then link.
func itemIdentity(item *gofeed.Item) string {
	for _, candidate := range []string{item.GUID, item.Link} {
		if doi := doiPattern.FindString(candidate); doi != "" {
			return doi
		}
	}
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

// cleanAbstract strips HTML markup and collapses whitespace in a feed
// item description.
func cleanAbstract(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Slugify lowercases a source name and replaces runs of non-alphanumeric
// characters with hyphens ("Nature Medicine" → "nature-medicine").
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
