package searchselect

import "strings"

// Filter returns the items whose fields contain query, case-insensitively.
// A match on any field qualifies. Order is preserved and a blank query
// returns every item. A non-blank query is matched as typed, surrounding
// spaces included. The result never aliases items.
func Filter[T any](items []T, query string, fields func(T) []string) []T {
	out := make([]T, 0, len(items))
	if strings.TrimSpace(query) == "" {
		return append(out, items...)
	}
	q := strings.ToLower(query)
	for _, item := range items {
		for _, f := range fields(item) {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}
