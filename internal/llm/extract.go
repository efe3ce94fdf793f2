package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSON means no balanced JSON array or object was found in the text.
	ErrNoJSON = errors.New("no balanced JSON value in model output")
	// ErrMalformedJSON means a balanced value was found but did not decode.
	ErrMalformedJSON = errors.New("malformed JSON in model output")
)

// ExtractArray returns the first balanced [...] substring of raw.
func ExtractArray(raw string) (string, error) {
	return extractBalanced(raw, '[', ']')
}

// ExtractObject returns the first balanced {...} substring of raw.
func ExtractObject(raw string) (string, error) {
	return extractBalanced(raw, '{', '}')
}

// DecodeArray extracts the first balanced array from raw and decodes it into []T.
func DecodeArray[T any](raw string) ([]T, error) {
	fragment, err := ExtractArray(raw)
	if err != nil {
		return nil, err
	}

	var out []T
	if err := json.Unmarshal([]byte(fragment), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return out, nil
}

// DecodeObject extracts the first balanced object from raw and decodes it into T.
func DecodeObject[T any](raw string) (T, error) {
	var out T

	fragment, err := ExtractObject(raw)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal([]byte(fragment), &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return out, nil
}

// extractBalanced scans from each opening delimiter in turn and returns the first
// span whose delimiters balance. Delimiters inside JSON strings are ignored.
func extractBalanced(raw string, open, closing byte) (string, error) {
	offset := strings.IndexByte(raw, open)
	for offset >= 0 {
		if end := matchClosing(raw, offset, open, closing); end > 0 {
			return raw[offset : end+1], nil
		}

		next := strings.IndexByte(raw[offset+1:], open)
		if next < 0 {
			break
		}
		offset += next + 1
	}
	return "", ErrNoJSON
}

func matchClosing(raw string, start int, open, closing byte) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]
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
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
