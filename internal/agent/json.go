package agent

import (
	"encoding/json"
	"errors"
	"strings"
)

// ExtractJSON defensively extracts a JSON object from potentially noisy LLM
// output: markdown fences are stripped, and prose around the object is
// discarded by scanning for brace boundaries.
func ExtractJSON(s string) ([]byte, error) {
	str := stripMarkdownCodeBlocks(s)

	// Try direct parse
	if json.Valid([]byte(str)) {
		return []byte(str), nil
	}

	// Find JSON object boundaries as fallback
	start := strings.Index(str, "{")
	end := strings.LastIndex(str, "}")

	if start == -1 || end == -1 || start >= end {
		return nil, errors.New("no JSON object found in response")
	}

	extracted := str[start : end+1]
	if !json.Valid([]byte(extracted)) {
		return nil, errors.New("extracted content is not valid JSON")
	}

	return []byte(extracted), nil
}

// stripMarkdownCodeBlocks removes markdown code block markers from a string.
func stripMarkdownCodeBlocks(s string) string {
	s = strings.TrimSpace(s)
	// Check for ```json or ``` at start
	if cut, found := strings.CutPrefix(s, "```json"); found {
		s = cut
	} else if cut, found := strings.CutPrefix(s, "```"); found {
		s = cut
	}
	// Check for ``` at end
	if cut, found := strings.CutSuffix(s, "```"); found {
		s = cut
	}
	return strings.TrimSpace(s)
}
