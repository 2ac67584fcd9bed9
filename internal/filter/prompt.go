// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// systemPromptTmpl instructs the fast tier to classify one paper against
// the configured keyword set and answer with bare JSON.
var systemPromptTmpl = template.Must(template.New("filter-system").Parse(`You are an academic paper classifier. Decide whether a paper is highly relevant to any of the following research keywords:

{{.Keywords}}

Respond with a JSON object and nothing else:
{"matched": true or false, "matched_keywords": ["Keyword Name"], "relevance": "high" or "medium" or "low", "reason": "one-sentence justification"}

Rules:
- Return matched: true only when the paper's core topic is highly relevant to a keyword.
- A paper that merely mentions related concepts is not a match.
- relevance "high" means the keyword area is the paper's central subject; "medium" means a strong connection; "low" means a weak connection and must be reported as matched: false.
- A paper may match several keywords.`))

// userPromptTmpl carries the candidate's metadata.
var userPromptTmpl = template.Must(template.New("filter-user").Parse(`Classify the following paper against the given keywords.

Title: {{.Title}}

Abstract: {{.Abstract}}

Answer with the JSON object only.`))

// formatKeywords renders the keyword definitions for the system prompt:
// name, description, and examples per keyword.
func formatKeywords(keywords []types.Keyword) string {
	var b strings.Builder
	for _, kw := range keywords {
		fmt.Fprintf(&b, "[%s]\n", kw.Name)
		fmt.Fprintf(&b, "  Description: %s\n", kw.Description)
		if len(kw.Examples) > 0 {
			fmt.Fprintf(&b, "  Examples: %s\n", strings.Join(kw.Examples, "; "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSystemPrompt(keywords []types.Keyword) (string, error) {
	var buf bytes.Buffer
	err := systemPromptTmpl.Execute(&buf, struct{ Keywords string }{Keywords: formatKeywords(keywords)})
	return buf.String(), err
}

func renderUserPrompt(p types.CandidatePaper) (string, error) {
	var buf bytes.Buffer
	err := userPromptTmpl.Execute(&buf, struct{ Title, Abstract string }{Title: p.Title, Abstract: p.Abstract})
	return buf.String(), err
}
