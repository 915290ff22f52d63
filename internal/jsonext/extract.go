// Package jsonext extracts JSON values from free-form model output.
//
// LLM completions frequently wrap the requested JSON in explanatory prose or
// markdown fences. Extraction scans for the outermost delimiters and validates
// the enclosed substring, so callers get either a decodable raw message or a
// typed error, never a panic.
package jsonext

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractError reports why no JSON value could be recovered from the text.
type ExtractError struct {
	Reason string
	Err    error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract json: %s: %v", e.Reason, e.Err)
	}
	return "extract json: " + e.Reason
}

func (e *ExtractError) Unwrap() error { return e.Err }

// ExtractObject returns the substring spanning the first '{' through the last
// '}' in text, provided it decodes as a JSON object.
func ExtractObject(text string) (json.RawMessage, error) {
	return extract(text, '{', '}', "object")
}

// ExtractArray is the bracket analogue of ExtractObject.
func ExtractArray(text string) (json.RawMessage, error) {
	return extract(text, '[', ']', "array")
}

func extract(text string, open, close byte, want string) (json.RawMessage, error) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end < start {
		return nil, &ExtractError{Reason: "no " + want + " delimiters in text"}
	}
	raw := json.RawMessage(strings.TrimSpace(text[start : end+1]))
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &ExtractError{Reason: "enclosed text is not valid JSON", Err: err}
	}
	return raw, nil
}
