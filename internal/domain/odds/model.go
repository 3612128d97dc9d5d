package odds

// Quote is one bookmaker's prices for a single game. Absent markets stay
// nil; a price of 0 is the provider's own "no data" sentinel and is kept
// as-is for compatibility with downstream consumers.
type Quote struct {
	MatchID   string     `json:"matchId"`
	Bookmaker string     `json:"bookmaker"`
	HomeOdds  float64    `json:"homeOdds"`
	AwayOdds  float64    `json:"awayOdds"`
	DrawOdds  *float64   `json:"drawOdds,omitempty"`
	OverUnder *OverUnder `json:"overUnder,omitempty"`
}

// OverUnder is the totals market. It is only populated when the source
// carries both sides of the line.
type OverUnder struct {
	Total     float64 `json:"total"`
	OverOdds  float64 `json:"overOdds"`
	UnderOdds float64 `json:"underOdds"`
}

// ImpliedProbability converts decimal odds into a 0..1 win probability.
// Odds at or below 1.0 carry no information and yield 0.
func ImpliedProbability(decimalOdds float64) float64 {
	if decimalOdds <= 1 {
		return 0
	}
	return 1 / decimalOdds
}
