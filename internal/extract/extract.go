// Package extract pulls structured values out of freeform model text.
//
// The JSON extraction deliberately uses a first-opening/last-closing bracket
// slice rather than a balanced-bracket parser: it tolerates prose before and
// after the value, but a stray bracket of the same type inside the prose will
// corrupt the slice. That limitation is accepted and pinned by tests so the
// behavior stays predictable; no silent repair is attempted.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// MaxSegments caps how many display sentences a chat reply is split into.
const MaxSegments = 4

var sentencePattern = regexp.MustCompile(`[^.?!]+[.?!]`)

// ExtractionError means the model call itself succeeded but its text did not
// contain a parseable value. Raw keeps the full model text for diagnostics.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "no structured content found in model output"
	}
	return "model output is not parseable: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Array locates the JSON array embedded in text and returns it unparsed.
func Array(text string) (json.RawMessage, error) {
	return sliceValue(text, '[', ']')
}

// Object locates the JSON object embedded in text and returns it unparsed.
func Object(text string) (json.RawMessage, error) {
	return sliceValue(text, '{', '}')
}

// ArrayInto extracts the embedded array and unmarshals it into out.
func ArrayInto(text string, out any) error {
	raw, err := Array(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ExtractionError{Raw: text, Err: err}
	}
	return nil
}

// ObjectInto extracts the embedded object and unmarshals it into out.
func ObjectInto(text string, out any) error {
	raw, err := Object(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ExtractionError{Raw: text, Err: err}
	}
	return nil
}

func sliceValue(text string, open, close byte) (json.RawMessage, error) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end < start {
		return nil, &ExtractionError{Raw: text}
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, &ExtractionError{Raw: text, Err: errInvalidJSON}
	}
	return json.RawMessage(candidate), nil
}

var errInvalidJSON = jsonSyntaxError("sliced text is not valid JSON")

type jsonSyntaxError string

func (e jsonSyntaxError) Error() string { return string(e) }

// Sentences splits prose on sentence-terminal punctuation and keeps at most
// MaxSegments display segments. Text without any terminator comes back whole
// as a single segment; blank text yields no segments rather than one empty
// segment.
func Sentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	matches := sentencePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return []string{trimmed}
	}
	if len(matches) > MaxSegments {
		matches = matches[:MaxSegments]
	}
	segments := make([]string, 0, len(matches))
	for _, match := range matches {
		segments = append(segments, strings.TrimSpace(match))
	}
	return segments
}
