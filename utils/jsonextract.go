package utils

import "encoding/json"

// FirstJSONObject returns the first brace-delimited object in free-form text.
// Generative responses routinely wrap their payload in prose or markdown
// fences, so the extractor tracks string literals and escapes instead of
// trusting the text to be bare JSON.
func FirstJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
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
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// DecodeFirstJSONObject extracts and unmarshals the first object in text.
// Fails soft: a missing or malformed object returns false, never an error —
// oracle output is best-effort by contract.
func DecodeFirstJSONObject(text string, out interface{}) bool {
	obj, ok := FirstJSONObject(text)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(obj), out) == nil
}
