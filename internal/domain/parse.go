package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ExtractJSON returns the largest balanced top-level {...} block in raw.
// Braces inside JSON strings are ignored, so code fences and surrounding prose are tolerated.
// An opening brace that never closes is skipped and the scan resumes right after it.
func ExtractJSON(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &ParseError{Reason: "empty model output"}
	}
	var best string
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		end, ok := balancedEnd(raw, i)
		if !ok {
			continue
		}
		if block := raw[i : end+1]; len(block) > len(best) {
			best = block
		}
		i = end
	}
	if best == "" {
		return "", &ParseError{Reason: "no JSON object found"}
	}
	return best, nil
}

// balancedEnd returns the index of the brace closing the one at start.
func balancedEnd(raw string, start int) (int, bool) {
	var (
		depth    int
		inString bool
		escaped  bool
	)
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func decodeObject(raw string, out any) error {
	block, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(block))
	if err := dec.Decode(out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &ParseError{Reason: fmt.Sprintf("field %q has wrong type", typeErr.Field), Err: err}
		}
		return &ParseError{Reason: "invalid JSON", Err: err}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return &ParseError{Reason: "unexpected trailing data"}
	}
	return nil
}

// ParseDocument extracts, decodes, defaults and validates a GDD. Unknown keys are ignored.
func ParseDocument(raw string) (Document, error) {
	var d Document
	if err := decodeObject(raw, &d); err != nil {
		return Document{}, err
	}
	d.applyDefaults()
	if err := ValidateDocument(d); err != nil {
		return Document{}, err
	}
	return d, nil
}

func ParseFeedback(raw string) (Feedback, error) {
	var f Feedback
	if err := decodeObject(raw, &f); err != nil {
		return Feedback{}, err
	}
	if err := ValidateFeedback(f); err != nil {
		return Feedback{}, err
	}
	return f, nil
}
