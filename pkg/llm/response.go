package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON object out of model output. Models often wrap the
// object in a ```json fence, a bare ``` fence, or put prose in front of it.
// Content without any of those markers is returned trimmed.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	if _, after, ok := strings.Cut(content, "```json"); ok {
		return fenced(after)
	}
	if _, after, ok := strings.Cut(content, "```"); ok {
		return fenced(after)
	}
	if i := strings.Index(content, "{"); i >= 0 {
		return trimTrailingProse(content[i:])
	}
	return content
}

func fenced(after string) string {
	if body, _, ok := strings.Cut(after, "```"); ok {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(after)
}

// trimTrailingProse drops text after the last closing brace when that makes
// the object valid.
func trimTrailingProse(s string) string {
	s = strings.TrimSpace(s)
	if json.Valid([]byte(s)) {
		return s
	}
	if j := strings.LastIndex(s, "}"); j >= 0 && json.Valid([]byte(s[:j+1])) {
		return s[:j+1]
	}
	return s
}
