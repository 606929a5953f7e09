package mailscan

import "strings"

// MatchesMarker reports whether the subject contains the alert marker,
// case-insensitively. Non-matching messages are dropped, not errors.
func MatchesMarker(subject, marker string) bool {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(subject), strings.ToLower(marker))
}

// FilterBySubject keeps the summaries whose subject matches the marker.
func FilterBySubject(summaries []Summary, marker string) []Summary {
	out := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if MatchesMarker(s.Subject, marker) {
			out = append(out, s)
		}
	}
	return out
}
