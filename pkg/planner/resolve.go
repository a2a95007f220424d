package planner

import (
	"regexp"
	"strconv"

	"github.com/jllopis/spaceagent/pkg/tool"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\d+)\}\}`)

// Resolve substitutes {{N}} tokens in input with the string form of
// outputs[N]. Strings are scanned once, so substituted text is never
// re-expanded. Maps and slices are resolved recursively and rebuilt; other
// values are returned unchanged. Tokens for unknown steps are left as is.
func Resolve(input any, outputs map[int]any) any {
	switch v := input.(type) {
	case string:
		return resolveString(v, outputs)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = Resolve(val, outputs)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, val := range v {
			out[k] = Resolve(val, outputs)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = Resolve(val, outputs)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, val := range v {
			out[i] = resolveString(val, outputs)
		}
		return out
	default:
		return v
	}
}

func resolveString(s string, outputs map[int]any) string {
	if len(outputs) == 0 {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		n, err := strconv.Atoi(token[2 : len(token)-2])
		if err != nil {
			return token
		}
		val, ok := outputs[n]
		if !ok {
			return token
		}
		return tool.Format(val)
	})
}

// Visible returns the outputs of steps numbered strictly below step.
func Visible(outputs map[int]any, step int) map[int]any {
	out := make(map[int]any, len(outputs))
	for n, v := range outputs {
		if n < step {
			out[n] = v
		}
	}
	return out
}
