package llm

import (
	"encoding/json"
	"strings"
)

// ExtractObject pulls the first JSON object embedded in model output.
// Models wrap structured answers in prose or code fences; this scans for
// balanced braces from each opening brace and returns the first span
// that parses. Returns false when no well-formed object is present.
func ExtractObject(text string) (map[string]any, bool) {
	for start := 0; ; {
		open := strings.IndexByte(text[start:], '{')
		if open < 0 {
			return nil, false
		}
		open += start

		if obj, ok := parseBalanced(text[open:]); ok {
			return obj, true
		}
		start = open + 1
	}
}

func parseBalanced(s string) (map[string]any, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				var obj map[string]any
				if err := json.Unmarshal([]byte(s[:i+1]), &obj); err == nil {
					return obj, true
				}
				return nil, false
			}
		}
	}
	return nil, false
}
