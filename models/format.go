package models

// BracketFormat is the competition structure of a tournament.
type BracketFormat string

const (
	FormatSingleElimination BracketFormat = "single-elimination"
	FormatRoundRobin        BracketFormat = "round-robin"
)

func (f BracketFormat) IsValid() bool {
	return f == FormatSingleElimination || f == FormatRoundRobin
}

// IsElimination reports whether winners progress into downstream matches.
func (f BracketFormat) IsElimination() bool {
	return f == FormatSingleElimination
}

// AllowsTies reports whether a match may complete without a winner.
func (f BracketFormat) AllowsTies() bool {
	return f == FormatRoundRobin
}

// RoundRobinSettings defines specific settings for a RoundRobin tournament format.
type RoundRobinSettings struct {
	Legs int `json:"legs"` // 1 for single round-robin, 2 for double
}

// Normalize clamps legs into the supported range.
func (s RoundRobinSettings) Normalize() RoundRobinSettings {
	if s.Legs < 1 || s.Legs > 2 {
		s.Legs = 1
	}
	return s
}
