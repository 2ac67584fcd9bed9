// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-radar/pkg/types"
)

var summaryPromptTmpl = template.Must(template.New("summary").Parse(
	`You are a senior research advisor. Based on the following analyses of today's new papers, write a daily progress summary for the "{{.Keyword}}" research area.

## Today's paper analyses:

{{.Papers}}

---

Write a concise, forceful field summary (in {{.Language}}, 300-500 words):

1. **Today at a glance**: number of papers published in this area today and the overall trend.

2. **Key breakthroughs**: the one or two most noteworthy results and why they matter. Cite papers by number ("Paper 1", "Paper 3").

3. **Technical trends**: methodological directions you observe across the papers.

4. **Worth following up**: papers that deserve a close read, and why. Cite by number.

Output the summary directly in Markdown. Do not wrap it in JSON. Use paper numbers when citing so readers can match against the paper list below the summary.`))

type summaryPromptData struct {
	Keyword  string
	Papers   string
	Language string
}

func renderSummaryPrompt(keyword, language string, papers []types.AnalyzedPaper) (string, error) {
	var sb strings.Builder
	n := 0
	for _, p := range papers {
		if !p.Analyzed {
			continue
		}
		n++
		fmt.Fprintf(&sb, "## Paper %d\n%s\n", n, formatPaperForSummary(p))
	}

	var buf bytes.Buffer
	err := summaryPromptTmpl.Execute(&buf, summaryPromptData{
		Keyword:  keyword,
		Papers:   sb.String(),
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("rendering summary prompt: %w", err)
	}
	return buf.String(), nil
}

func formatPaperForSummary(p types.AnalyzedPaper) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n", p.Title)
	fmt.Fprintf(&sb, "- **ID**: %s\n", p.Identity)
	fmt.Fprintf(&sb, "- **Authors**: %s\n", authorLine(p.Authors))
	if len(p.Analysis.Affiliations) > 0 {
		fmt.Fprintf(&sb, "- **Affiliations**: %s\n", strings.Join(truncateList(p.Analysis.Affiliations, 2), ", "))
	}
	fmt.Fprintf(&sb, "- **TLDR**: %s\n", p.Analysis.TLDR)
	if len(p.Analysis.Contributions) > 0 {
		sb.WriteString("- **Contributions**:\n")
		for _, c := range truncateList(p.Analysis.Contributions, 3) {
			fmt.Fprintf(&sb, "  - %s\n", c)
		}
	}
	if len(p.Analysis.Innovations) > 0 {
		fmt.Fprintf(&sb, "- **Innovations**: %s\n", strings.Join(truncateList(p.Analysis.Innovations, 2), "; "))
	}
	fmt.Fprintf(&sb, "- **Method**: %s\n", truncateText(p.Analysis.Methodology, 200))
	return sb.String()
}

func authorLine(authors []string) string {
	if len(authors) == 0 {
		return types.NotStated
	}
	line := strings.Join(truncateList(authors, 3), ", ")
	if len(authors) > 3 {
		line += " et al."
	}
	return line
}

func truncateList(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	return items[:max]
}

func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
