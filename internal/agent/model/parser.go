package model

import (
	"encoding/json"
	"strings"

	pkgstrings "kycgate/pkg/platform/strings"
)

// MaxRawAnalysis caps the raw model text kept on a parse failure.
const MaxRawAnalysis = 1000

const (
	parseErrorNotJSON   = "Response was not valid JSON"
	parseErrorNotObject = "Response was not a JSON object"
)

// Parse extracts a structured verdict from raw model text. Markdown code
// fences are stripped first. Text that is not a JSON object yields a review
// structure carrying the truncated raw text and ok=false.
func Parse(raw string) (map[string]any, bool) {
	text := StripFences(raw)

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return unparsed(text, parseErrorNotJSON), false
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return unparsed(text, parseErrorNotObject), false
	}
	return obj, true
}

// StripFences removes a surrounding markdown code fence, with or without a
// json language tag, from model text.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	switch {
	case hasPrefixFold(text, "```json"):
		text = text[len("```json"):]
	case strings.HasPrefix(text, "```"):
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func unparsed(text, reason string) map[string]any {
	return map[string]any{
		"status":       "NEEDS_REVIEW",
		"raw_analysis": pkgstrings.Truncate(text, MaxRawAnalysis),
		"parse_error":  reason,
	}
}
