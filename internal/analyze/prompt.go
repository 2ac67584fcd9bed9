// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// extractionPromptTmpl is the structured-extraction prompt sent to the
// capable tier together with the full document. It pins the response to
// a single JSON object whose fields mirror the Analysis record.
var extractionPromptTmpl = template.Must(template.New("analysis").Parse(`You are an expert research analyst. Read the attached academic paper "{{.Title}}" in full and extract a structured analysis.

Respond with a JSON object and nothing else:
{
  "tldr": "one or two sentences capturing what the paper does and why it matters",
  "methodology": "the core technical approach",
  "experiments": "experimental setup and headline results",
  "contributions": ["main contribution", "..."],
  "innovations": ["what is genuinely new", "..."],
  "limitations": ["stated or evident limitation", "..."],
  "affiliations": ["first author's institution", "..."],
  "dataset_info": "datasets used, with sizes where stated",
  "code_url": "repository URL if the paper provides one, else empty string",
  "quality_score": 7,
  "score_reason": "one sentence justifying the score"
}

Rules:
- quality_score is an integer from 0 to 10 judging rigor, novelty, and likely impact.
- When the paper does not state something, use the string "{{.NotStated}}" for that field; never invent content.
- Keep every string concise. Do not include any text outside the JSON object.

The paper was matched to these research interests: {{.Keywords}}.`))

func renderExtractionPrompt(p types.MatchedPaper) (string, error) {
	var buf bytes.Buffer
	err := extractionPromptTmpl.Execute(&buf, struct {
		Title     string
		NotStated string
		Keywords  string
	}{
		Title:     p.Title,
		NotStated: types.NotStated,
		Keywords:  strings.Join(p.MatchedKeywords, ", "),
	})
	return buf.String(), err
}
