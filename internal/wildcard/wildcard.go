package wildcard

import "strings"

// Match reports whether subject starts with a run of text described by pattern.
// A '*' stands for any sequence of characters, every other character is literal.
// An empty pattern or a lone '*' matches everything.
func Match(pattern, subject string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || pattern == "*" {
		return true
	}
	segments := strings.Split(pattern, "*")
	if !strings.HasPrefix(subject, segments[0]) {
		return false
	}
	rest := subject[len(segments[0]):]
	// leftmost placement of each later segment leaves the most room for the next
	for _, seg := range segments[1:] {
		idx := strings.Index(rest, seg)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(seg):]
	}
	return true
}

// MatchAny reports whether any of the patterns matches subject.
func MatchAny(patterns []string, subject string) bool {
	for _, p := range patterns {
		if Match(p, subject) {
			return true
		}
	}
	return false
}

// SplitPatterns splits a comma-separated pattern list. Entries are not trimmed;
// Match trims each pattern itself.
func SplitPatterns(csv string) []string {
	return strings.Split(csv, ",")
}
