package llm

import (
	"bytes"
	"encoding/json"
)

// ExtractJSON returns the JSON value inside raw model output. It tolerates
// a Markdown code fence and prose around a single object. Output holding no
// object comes back trimmed so validation can report it.
func ExtractJSON(raw []byte) json.RawMessage {
	s := stripFences(raw)
	if json.Valid(s) {
		return s
	}
	if obj, ok := firstJSONObject(s); ok {
		return obj
	}
	return s
}

func stripFences(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	s = s[3:]
	// Drop the info string ("json") up to the first newline.
	if i := bytes.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	if i := bytes.LastIndex(s, []byte("```")); i >= 0 {
		s = s[:i]
	}
	return bytes.TrimSpace(s)
}

// firstJSONObject returns the first balanced {...} in b, honouring strings
// and escapes so braces inside text values do not end the scan early.
func firstJSONObject(b []byte) (json.RawMessage, bool) {
	start := bytes.IndexByte(b, '{')
	if start < 0 {
		return nil, false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(b); i++ {
		c := b[i]
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
				return json.RawMessage(b[start : i+1]), true
			}
		}
	}
	return nil, false
}
