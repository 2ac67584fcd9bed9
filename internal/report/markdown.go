// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// RenderMarkdown produces the human-readable digest for a daily report.
func RenderMarkdown(report *types.DailyReport) string {
	var sb strings.Builder

	sb.WriteString("# Daily Paper Digest\n\n")
	fmt.Fprintf(&sb, "**Date**: %s | **New papers**: %d | **Matched**: %d | **Analyzed**: %d\n\n",
		report.Date, report.TotalPapers, report.MatchedPapers, report.AnalyzedPapers)
	sb.WriteString("---\n\n")

	for _, keyword := range report.Keywords {
		papers := report.PapersByKeyword[keyword]
		analyzed := analyzedOnly(papers)

		fmt.Fprintf(&sb, "## %s (%d papers)\n\n", keyword, len(analyzed))

		if summary := report.Summaries[keyword]; summary != "" {
			sb.WriteString("### Field Summary\n\n")
			sb.WriteString(blockquote(summary))
			sb.WriteString("\n\n")
		}

		if len(analyzed) > 0 {
			sb.WriteString("### Papers\n\n")
			for i, p := range analyzed {
				writePaper(&sb, i+1, p)
			}
		} else {
			sb.WriteString("*No papers in this area today.*\n\n")
		}

		sb.WriteString("---\n\n")
	}

	if failed := failedOnly(report); len(failed) > 0 {
		sb.WriteString("## Matched But Not Analyzed\n\n")
		for _, p := range failed {
			fmt.Fprintf(&sb, "- [%s](%s): %s\n", p.Title, abstractLink(p), p.AnalysisError)
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("*Generated automatically from arXiv and journal feeds.*\n")
	return sb.String()
}

// SaveMarkdown writes the digest to dir/paper-radar-<date>.md and
// returns the path written.
func SaveMarkdown(report *types.DailyReport, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating markdown directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("paper-radar-%s.md", report.Date))
	if err := os.WriteFile(path, []byte(RenderMarkdown(report)), 0o644); err != nil {
		return "", fmt.Errorf("writing markdown report: %w", err)
	}
	return path, nil
}

func writePaper(sb *strings.Builder, n int, p types.AnalyzedPaper) {
	fmt.Fprintf(sb, "#### %d. [%s](%s)\n\n", n, p.Title, abstractLink(p))

	sb.WriteString("| | |\n|------|------|\n")
	fmt.Fprintf(sb, "| **Authors** | %s |\n", authorLine(p.Authors))
	if len(p.Analysis.Affiliations) > 0 {
		fmt.Fprintf(sb, "| **Affiliations** | %s |\n", strings.Join(truncateList(p.Analysis.Affiliations, 2), ", "))
	}
	fmt.Fprintf(sb, "| **Source** | %s |\n", sourceLine(p))
	fmt.Fprintf(sb, "| **Score** | %.0f/10 |\n", p.Analysis.QualityScore)
	if p.Analysis.TLDR != "" {
		fmt.Fprintf(sb, "| **TLDR** | %s |\n", p.Analysis.TLDR)
	}
	sb.WriteString("\n")

	if len(p.Analysis.Contributions) > 0 {
		sb.WriteString("**Contributions:**\n")
		for _, c := range truncateList(p.Analysis.Contributions, 3) {
			fmt.Fprintf(sb, "- %s\n", c)
		}
		sb.WriteString("\n")
	}

	if len(p.Analysis.Innovations) > 0 {
		fmt.Fprintf(sb, "**Innovations:** %s\n\n", strings.Join(truncateList(p.Analysis.Innovations, 2), "; "))
	}

	if p.Analysis.DatasetInfo != "" && p.Analysis.DatasetInfo != types.NotStated {
		fmt.Fprintf(sb, "**Datasets:** %s\n\n", p.Analysis.DatasetInfo)
	}

	links := []string{}
	if p.PDFURL != "" {
		links = append(links, fmt.Sprintf("[PDF](%s)", p.PDFURL))
	}
	if p.AbstractURL != "" && p.AbstractURL != p.PDFURL {
		links = append(links, fmt.Sprintf("[Abstract](%s)", p.AbstractURL))
	}
	if p.Analysis.CodeURL != "" {
		links = append(links, fmt.Sprintf("[Code](%s)", p.Analysis.CodeURL))
	}
	if len(links) > 0 {
		fmt.Fprintf(sb, "**Links:** %s\n\n", strings.Join(links, " | "))
	}
}

func abstractLink(p types.AnalyzedPaper) string {
	if p.AbstractURL != "" {
		return p.AbstractURL
	}
	return p.PDFURL
}

func sourceLine(p types.AnalyzedPaper) string {
	if p.SourceKind == types.SourceJournal {
		return fmt.Sprintf("**%s**", p.SourceName)
	}
	return fmt.Sprintf("**arXiv** (%s)", p.Identity)
}

func blockquote(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

func analyzedOnly(papers []types.AnalyzedPaper) []types.AnalyzedPaper {
	out := make([]types.AnalyzedPaper, 0, len(papers))
	for _, p := range papers {
		if p.Analyzed {
			out = append(out, p)
		}
	}
	return out
}

// failedOnly collects failed analyses across keywords, deduplicated by
// identity so a paper matching several keywords is listed once.
func failedOnly(report *types.DailyReport) []types.AnalyzedPaper {
	seen := make(map[string]bool)
	var out []types.AnalyzedPaper
	for _, keyword := range report.Keywords {
		for _, p := range report.PapersByKeyword[keyword] {
			if p.Analyzed || seen[p.Identity] {
				continue
			}
			seen[p.Identity] = true
			out = append(out, p)
		}
	}
	return out
}
