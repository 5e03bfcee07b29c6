package models

import "time"

type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "pending"
	ParticipantApproved  ParticipantStatus = "approved"
	ParticipantRejected  ParticipantStatus = "rejected"
	ParticipantWithdrawn ParticipantStatus = "withdrawn"
)

func (s ParticipantStatus) IsValid() bool {
	switch s {
	case ParticipantPending, ParticipantApproved, ParticipantRejected, ParticipantWithdrawn:
		return true
	}
	return false
}

// Participant is a registration of a single user or a team in a tournament.
type Participant struct {
	ID           int               `json:"id" db:"id"`
	TournamentID int               `json:"tournament_id" db:"tournament_id"`
	UserID       *int              `json:"user_id,omitempty" db:"user_id"`
	TeamID       *int              `json:"team_id,omitempty" db:"team_id"`
	DisplayName  string            `json:"display_name" db:"display_name"`
	Status       ParticipantStatus `json:"status" db:"status"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}
