package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие CHECK в БД.
type TournamentStatus string

const (
	StatusDraft      TournamentStatus = "draft"
	StatusOpen       TournamentStatus = "open"
	StatusFull       TournamentStatus = "full"
	StatusInProgress TournamentStatus = "in-progress"
	StatusCompleted  TournamentStatus = "completed"
)

func (s TournamentStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusOpen, StatusFull, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// AcceptsRegistrations reports whether occupancy may still change.
func (s TournamentStatus) AcceptsRegistrations() bool {
	return s == StatusDraft || s == StatusOpen || s == StatusFull
}

// Tournament представляет турнир.
type Tournament struct {
	ID                  int              `json:"id" db:"id"`
	Name                string           `json:"name" db:"name"`
	Sport               string           `json:"sport" db:"sport"`
	Format              BracketFormat    `json:"format" db:"format"`
	MaxParticipants     int              `json:"max_participants" db:"max_participants"`
	CurrentParticipants int              `json:"current_participants" db:"current_participants"`
	Status              TournamentStatus `json:"status" db:"status"`
	StartDate           time.Time        `json:"start_date" db:"start_date"`
	EndDate             time.Time        `json:"end_date" db:"end_date"`
	OrganizerID         int              `json:"organizer_id" db:"organizer_id"`
	RoundRobinLegs      int              `json:"round_robin_legs" db:"round_robin_legs"`
	WinnerParticipantID *int             `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
}

// ScheduleWindow returns the tournament date window used for fixture spacing.
func (t *Tournament) ScheduleWindow() ScheduleWindow {
	return ScheduleWindow{Start: t.StartDate, End: t.EndDate}
}

type ScheduleWindow struct {
	Start time.Time
	End   time.Time
}

// Days is the inclusive number of calendar days in the window, never less than one.
func (w ScheduleWindow) Days() int {
	if w.End.IsZero() || !w.End.After(w.Start) {
		return 1
	}
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}
