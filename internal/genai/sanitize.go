package genai

import (
	"regexp"
	"strings"
)

// Fence-stripping patterns. Models asked for JSON output still frequently
// wrap it in a Markdown code fence, with or without a language tag, and
// sometimes surround it with prose.
var (
	leadingFenceRegex  = regexp.MustCompile("^```(?:json)?[ \t]*\r?\n?")
	trailingFenceRegex = regexp.MustCompile("\r?\n?```\\s*$")
	fencedBlockRegex   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
)

// ExtractJSON returns the substring of raw most likely to be a JSON
// document. It strips a leading and trailing fence marker, then, if a fenced
// block still remains anywhere, takes the first block's inner content. Text
// without fences is returned trimmed and otherwise unchanged.
//
// ExtractJSON never parses: the calling stage parses the result and must
// treat a parse failure (including empty output) as a stage-level error.
func ExtractJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = leadingFenceRegex.ReplaceAllString(cleaned, "")
	cleaned = trailingFenceRegex.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	if strings.Contains(cleaned, "```") {
		if m := fencedBlockRegex.FindStringSubmatch(cleaned); m != nil {
			cleaned = m[1]
		}
	}
	return strings.TrimSpace(cleaned)
}
