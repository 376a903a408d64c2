package llm

import (
	"fmt"
	"strings"
)

// FirstJSONArray returns the first balanced JSON array embedded in text.
// Completions are expected to contain one JSON value, but models wrap it in
// prose often enough that the value has to be located explicitly.
func FirstJSONArray(text string) (string, error) {
	return firstBalanced(text, '[', ']')
}

// FirstJSONObject returns the first balanced JSON object embedded in text.
func FirstJSONObject(text string) (string, error) {
	return firstBalanced(text, '{', '}')
}

// firstBalanced scans for the first open rune and returns the region up to its
// matching close rune, tracking string literals so brackets inside them don't
// count.
func firstBalanced(text string, opening, closing rune) (string, error) {
	start := strings.IndexRune(text, opening)
	if start < 0 {
		return "", fmt.Errorf("no %q found in response", opening)
	}

	depth := 0
	inString := false
	escaped := false
	for i, r := range text[start:] {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			inString = true
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return text[start : start+i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced %q in response", opening)
}
