package suggest

import "strings"

// Query is one oracle request. When Phrase is set it is sent verbatim and the
// other fields only describe where it came from.
type Query struct {
	Vertical string
	Location string
	Modifier string
	Phrase   string
}

// Text renders the search string: vertical, "em", location, modifier, with
// absent parts dropped.
func (q Query) Text() string {
	if p := strings.TrimSpace(q.Phrase); p != "" {
		return p
	}

	parts := make([]string, 0, 4)
	if v := strings.TrimSpace(q.Vertical); v != "" {
		parts = append(parts, v)
	}
	if l := strings.TrimSpace(q.Location); l != "" {
		parts = append(parts, "em", l)
	}
	if m := strings.TrimSpace(q.Modifier); m != "" {
		parts = append(parts, m)
	}
	return strings.Join(parts, " ")
}

// Valid reports whether the query has something to send.
func (q Query) Valid() bool {
	return strings.TrimSpace(q.Phrase) != "" || strings.TrimSpace(q.Vertical) != ""
}
