package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNoJSON = errors.New("llm: no JSON found in model output")

	fenceRe         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// ParseJSON decodes model output into target. It accepts bare JSON, JSON in
// a markdown fence, JSON embedded in prose, and trailing commas.
func ParseJSON(output string, target any) error {
	s := strings.TrimSpace(strings.TrimPrefix(output, "\ufeff"))
	if s == "" {
		return ErrNoJSON
	}

	candidates := []string{s}
	if m := fenceRe.FindStringSubmatch(s); len(m) > 1 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if embedded := extractBalanced(s); embedded != "" {
		candidates = append(candidates, embedded)
	}

	var lastErr error
	for _, c := range candidates {
		for _, attempt := range []string{c, trailingCommaRe.ReplaceAllString(c, "$1")} {
			err := json.Unmarshal([]byte(attempt), target)
			if err == nil {
				return nil
			}
			lastErr = err
		}
	}
	return fmt.Errorf("%w: %v (output %q)", ErrNoJSON, lastErr, truncate(s, 100))
}

// extractBalanced returns the first complete JSON array or object in s,
// whichever opens first.
func extractBalanced(s string) string {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	open := rune(s[start])
	closer := ']'
	if open == '{' {
		closer = '}'
	}

	depth := 0
	inString, escape := false, false
	for i, ch := range s[start:] {
		switch {
		case escape:
			escape = false
		case ch == '\\' && inString:
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == closer:
			depth--
			if depth == 0 {
				return s[start : start+i+1]
			}
		}
	}
	return ""
}
