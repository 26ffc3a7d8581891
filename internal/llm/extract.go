package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFences removes Markdown code-fence markers wrapping a model reply.
func StripCodeFences(content string) string {
	content = strings.ReplaceAll(content, "```json\n", "")
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```\n", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}

// ExtractObject returns the first top-level JSON object in content, found by brace
// matching that ignores braces inside string literals. When no balanced object
// exists it falls back to the span between the first '{' and the last '}'.
func ExtractObject(content string) (string, bool) {
	start := strings.Index(content, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}

	end := strings.LastIndex(content, "}")
	if end > start {
		return content[start : end+1], true
	}
	return "", false
}

// ExtractJSON is the best-effort structured extraction used by every strategy:
// locate the first JSON object in raw and decode it strictly into v. Any failure
// is reported as ErrMalformedOutput.
func ExtractJSON(raw string, v interface{}) error {
	object, ok := ExtractObject(raw)
	if !ok {
		return fmt.Errorf("%w: no JSON object found", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(object), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}
