// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON parses a JSON object out of a model reply into v. Models are
// told to answer with bare JSON but often wrap it in a fenced code block
// or surround it with prose, so parsing is tiered: the whole reply first,
// then the contents of a ```json fence, then the first brace-balanced
// object found in the text.
func DecodeJSON(reply string, v any) error {
	reply = strings.TrimSpace(reply)

	if err := json.Unmarshal([]byte(reply), v); err == nil {
		return nil
	}

	if inner, ok := fencedBlock(reply); ok {
		if err := json.Unmarshal([]byte(inner), v); err == nil {
			return nil
		}
	}

	if obj, ok := firstObject(reply); ok {
		if err := json.Unmarshal([]byte(obj), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no parseable JSON object in reply (%d bytes)", len(reply))
}

// fencedBlock returns the contents of the first ``` or ```json fence.
func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// firstObject scans for the first brace-balanced JSON object, ignoring
// braces inside string literals.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
