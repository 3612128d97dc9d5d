// Package resolve correlates records that arrive from independent sources
// without a shared id. Matching is deliberately permissive: abbreviations
// like "Man Utd" must land on "Manchester United" even at the cost of the
// occasional false positive.
package resolve

import (
	"regexp"
	"strings"

	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/domain/prediction"
)

var nonWord = regexp.MustCompile(`[^\w\s-]`)
var whitespace = regexp.MustCompile(`\s+`)

// Normalize folds a display name into a matching key: lowercase, non-word
// characters stripped, runs of whitespace collapsed to single underscores.
func Normalize(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = nonWord.ReplaceAllString(key, "")
	key = whitespace.ReplaceAllString(key, "_")
	return key
}

// MatchKey builds the canonical home_vs_away correlation key.
func MatchKey(home, away string) string {
	return Normalize(home) + "_vs_" + Normalize(away)
}

// TeamsMatch applies bidirectional substring containment on normalized
// names. Empty names never match anything.
func TeamsMatch(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// Correlates reports whether a prediction refers to the given live match,
// either through a shared id or through both team names matching.
func Correlates(p prediction.Prediction, m match.Match) bool {
	if p.MatchKey != "" && p.MatchKey == m.ID {
		return true
	}
	return TeamsMatch(m.HomeTeam, p.HomeTeam) && TeamsMatch(m.AwayTeam, p.AwayTeam)
}

// Dedup removes predictions repeating the same (matchKey, outcome) pair,
// keeping the first occurrence in source-iteration order. The outcome part
// of the key is case- and whitespace-insensitive.
func Dedup(predictions []prediction.Prediction) []prediction.Prediction {
	seen := make(map[string]struct{}, len(predictions))
	out := make([]prediction.Prediction, 0, len(predictions))
	for _, p := range predictions {
		key := p.MatchKey + "|" + Normalize(p.Outcome)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Attach annotates each match with the first correlating prediction.
// Matches without one keep the documented default text; predictions that
// correlate to nothing are a normal outcome and stay untouched.
func Attach(matches []match.Match, predictions []prediction.Prediction) []match.Match {
	out := make([]match.Match, len(matches))
	copy(out, matches)
	for i := range out {
		out[i].Prediction = "No prediction available"
		for _, p := range predictions {
			if Correlates(p, out[i]) {
				out[i].Prediction = p.Outcome
				confidence := p.Confidence
				out[i].Confidence = &confidence
				break
			}
		}
	}
	return out
}
