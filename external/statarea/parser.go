package statarea

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/matchpulse/aggregator/internal/domain/confidence"
	"github.com/matchpulse/aggregator/internal/domain/prediction"
	"github.com/matchpulse/aggregator/internal/domain/resolve"
)

// The site serves several page layouts depending on the listing. Row
// selectors are tried in order and the first one that matches anything
// wins, so a page matching two layouts is not parsed twice.
var rowSelectors = []string{
	".prediction-row",
	".match-row",
	".tip-row",
	"tr.match",
	".prediction-item",
}

var (
	homeSelectors       = []string{".home-team", ".team-home", ".home"}
	awaySelectors       = []string{".away-team", ".team-away", ".away"}
	tipSelectors        = []string{".tip", ".prediction", ".bet-tip", ".recommendation"}
	leagueSelectors     = []string{".league", ".competition", ".tournament"}
	oddsSelectors       = []string{".odds", ".odd", ".price", ".coefficient"}
	dateSelectors       = []string{".date", ".time", ".match-date", ".game-time"}
	confidenceSelectors = []string{".confidence", ".probability", ".sure", ".rating"}
)

var (
	percentRegex = regexp.MustCompile(`(\d+)%?`)
	versusRegex  = regexp.MustCompile(`([A-Za-z][A-Za-z\s.'-]*?)\s+vs?\.?\s+([A-Za-z][A-Za-z\s.'-]*)`)
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
	"02/01/2006 15:04",
	"Jan 2, 2006 15:04",
	"Jan 2 15:04",
}

func parseDocument(doc *goquery.Document, endpoint string, bounds confidence.Bounds, now time.Time) []prediction.Prediction {
	var rows *goquery.Selection
	for _, selector := range rowSelectors {
		candidate := doc.Find(selector)
		if candidate.Length() > 0 {
			rows = candidate
			break
		}
	}
	if rows == nil {
		return nil
	}

	out := make([]prediction.Prediction, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		if p, ok := parseRow(row, endpoint, bounds, now); ok {
			out = append(out, p)
		}
	})
	return out
}

// parseRow is strictly best-effort: a row missing teams or a tip is
// dropped, everything else falls back to a default instead of failing.
func parseRow(row *goquery.Selection, endpoint string, bounds confidence.Bounds, now time.Time) (prediction.Prediction, bool) {
	home := firstText(row, homeSelectors)
	away := firstText(row, awaySelectors)
	if home == "" || away == "" {
		home, away = splitVersus(row.Text())
	}
	if home == "" || away == "" {
		return prediction.Prediction{}, false
	}

	outcome := firstText(row, tipSelectors)
	if outcome == "" {
		return prediction.Prediction{}, false
	}

	league := firstText(row, leagueSelectors)
	if league == "" {
		league = "Unknown"
	}

	odds := extractOdds(row)
	return prediction.Prediction{
		MatchKey:   resolve.MatchKey(home, away),
		HomeTeam:   home,
		AwayTeam:   away,
		Outcome:    outcome,
		Confidence: extractConfidence(row, odds, bounds),
		League:     league,
		Odds:       odds,
		Date:       extractDate(row, now),
		Status:     prediction.StatusActive,
		Categories: prediction.Categorize(outcome, endpoint),
		Endpoint:   endpoint,
	}, true
}

func firstText(row *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(row.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// splitVersus recovers team names from free row text like "Arsenal vs
// Chelsea". It works line by line because row text concatenates every child
// node; the split stays ambiguous for names containing " v " and is only
// used when the structured selectors found nothing.
func splitVersus(text string) (string, string) {
	for _, line := range strings.Split(text, "\n") {
		groups := versusRegex.FindStringSubmatch(strings.TrimSpace(line))
		if len(groups) == 3 {
			return strings.TrimSpace(groups[1]), strings.TrimSpace(groups[2])
		}
	}
	return "", ""
}

// extractOdds only accepts decimal odds above 1; anything else is the
// 0 sentinel meaning no price was printed.
func extractOdds(row *goquery.Selection) float64 {
	for _, selector := range oddsSelectors {
		text := strings.TrimSpace(row.Find(selector).First().Text())
		value, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if err == nil && value > 1 {
			return value
		}
	}
	return 0
}

// extractConfidence prefers the page's explicit percentage, then derives
// one from the odds, then falls back to the default.
func extractConfidence(row *goquery.Selection, odds float64, bounds confidence.Bounds) int {
	for _, selector := range confidenceSelectors {
		text := strings.TrimSpace(row.Find(selector).First().Text())
		groups := percentRegex.FindStringSubmatch(text)
		if len(groups) == 2 {
			value, err := strconv.Atoi(groups[1])
			if err == nil {
				return confidence.Clamp(value)
			}
		}
	}
	return bounds.FromOdds(odds)
}

func extractDate(row *goquery.Selection, now time.Time) time.Time {
	for _, selector := range dateSelectors {
		text := strings.TrimSpace(row.Find(selector).First().Text())
		if text == "" {
			continue
		}
		for _, layout := range dateLayouts {
			parsed, err := time.Parse(layout, text)
			if err != nil {
				continue
			}
			// Time-only and day-month layouts parse into year 0; pin
			// them to the current date.
			if parsed.Year() == 0 {
				parsed = time.Date(now.Year(), now.Month(), now.Day(),
					parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
			}
			return parsed.UTC()
		}
	}
	return now
}
