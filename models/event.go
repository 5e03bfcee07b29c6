package models

import "time"

type EventKind string

const (
	EventBracketGenerated    EventKind = "bracket-generated"
	EventMatchResultRecorded EventKind = "match-result-recorded"
	EventScheduleChanged     EventKind = "schedule-changed"
)

// Event is emitted after a successful mutation of a tournament's match set.
// Bracket events carry the full match set, the others a single match.
type Event struct {
	ID           string    `json:"id"`
	Kind         EventKind `json:"kind"`
	TournamentID int       `json:"tournament_id"`
	Matches      []*Match  `json:"matches,omitempty"`
	Match        *Match    `json:"match,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
