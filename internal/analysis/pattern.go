package analysis

import (
	"sort"
	"strings"
)

// ResolvePattern implements the shared function-name resolution rule used by
// callers, callees, drilldown and the disassembly service: an exact name
// match wins, a substring match is the fallback, and failing both the
// pattern is returned verbatim so downstream queries simply observe zero
// samples for it.
func ResolvePattern(stats map[string]*FuncStats, pattern string) string {
	if _, ok := stats[pattern]; ok {
		return pattern
	}

	var matches []string
	for name := range stats {
		if strings.Contains(name, pattern) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return pattern
	}
	sort.Strings(matches)
	return matches[0]
}
