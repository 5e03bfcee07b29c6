package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type MatchStatus string

const (
	MatchScheduled  MatchStatus = "scheduled"
	MatchInProgress MatchStatus = "in-progress"
	MatchCompleted  MatchStatus = "completed"
	MatchCancelled  MatchStatus = "cancelled"
	MatchPostponed  MatchStatus = "postponed"
)

func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchScheduled, MatchInProgress, MatchCompleted, MatchCancelled, MatchPostponed:
		return true
	}
	return false
}

const (
	Slot1 = 1
	Slot2 = 2
)

// SetScore is a single set/period of a match.
type SetScore struct {
	Participant1 int `json:"participant1"`
	Participant2 int `json:"participant2"`
}

// SetScores is stored as a JSONB array.
type SetScores []SetScore

func (s SetScores) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *SetScores) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for SetScores: %T", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

// Won returns how many sets each side took. Drawn sets count for neither.
func (s SetScores) Won() (p1, p2 int) {
	for _, set := range s {
		switch {
		case set.Participant1 > set.Participant2:
			p1++
		case set.Participant2 > set.Participant1:
			p2++
		}
	}
	return p1, p2
}

// Match is a single contest between two participant slots.
// A nil slot is TBD until an upstream match progresses its winner into it.
type Match struct {
	ID                    int         `json:"id" db:"id"`
	TournamentID          int         `json:"tournament_id" db:"tournament_id"`
	Number                int         `json:"number" db:"number"`
	Round                 int         `json:"round" db:"round"`
	Position              int         `json:"position" db:"position"`
	Label                 string      `json:"label" db:"label"`
	Participant1ID        *int        `json:"participant1_id" db:"participant1_id"`
	Participant2ID        *int        `json:"participant2_id" db:"participant2_id"`
	ScheduledAt           *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	Venue                 *string     `json:"venue,omitempty" db:"venue"`
	Status                MatchStatus `json:"status" db:"status"`
	Participant1Score     *int        `json:"participant1_score,omitempty" db:"participant1_score"`
	Participant2Score     *int        `json:"participant2_score,omitempty" db:"participant2_score"`
	Forfeit               bool        `json:"forfeit" db:"forfeit"`
	ForfeitingSlot        *int        `json:"forfeiting_slot,omitempty" db:"forfeiting_slot"`
	Sets                  SetScores   `json:"sets,omitempty" db:"sets"`
	CompletedAt           *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	ActualDurationSeconds *int64      `json:"actual_duration_seconds,omitempty" db:"actual_duration_seconds"`
	WinnerParticipantID   *int        `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	NextMatchID           *int        `json:"next_match_id,omitempty" db:"next_match_id"`
	NextSlot              *int        `json:"next_slot,omitempty" db:"next_slot"`
	SourceMatch1ID        *int        `json:"source_match1_id,omitempty" db:"source_match1_id"`
	SourceMatch2ID        *int        `json:"source_match2_id,omitempty" db:"source_match2_id"`
	IsBye                 bool        `json:"is_bye" db:"is_bye"`
	CreatedAt             time.Time   `json:"created_at" db:"created_at"`
}

var ErrInvalidSlot = errors.New("slot must be 1 or 2")

// SlotParticipant returns the occupant of slot 1 or 2.
func (m *Match) SlotParticipant(slot int) (*int, error) {
	switch slot {
	case Slot1:
		return m.Participant1ID, nil
	case Slot2:
		return m.Participant2ID, nil
	}
	return nil, ErrInvalidSlot
}

// OtherSlot returns the opposite slot number.
func OtherSlot(slot int) int {
	if slot == Slot1 {
		return Slot2
	}
	return Slot1
}

// HasBothParticipants reports whether neither slot is TBD.
func (m *Match) HasBothParticipants() bool {
	return m.Participant1ID != nil && m.Participant2ID != nil
}

// HasDuplicateParticipants reports whether both slots reference the same participant.
func (m *Match) HasDuplicateParticipants() bool {
	return m.HasBothParticipants() && *m.Participant1ID == *m.Participant2ID
}

// IsCounted reports whether the match contributes to standings.
func (m *Match) IsCounted() bool {
	return m.Status == MatchCompleted && !m.IsBye && m.HasBothParticipants() &&
		m.Participant1Score != nil && m.Participant2Score != nil
}

// Clone returns a copy that shares no pointers with m.
func (m *Match) Clone() *Match {
	c := *m
	c.Participant1ID = cloneInt(m.Participant1ID)
	c.Participant2ID = cloneInt(m.Participant2ID)
	c.Participant1Score = cloneInt(m.Participant1Score)
	c.Participant2Score = cloneInt(m.Participant2Score)
	c.ForfeitingSlot = cloneInt(m.ForfeitingSlot)
	c.WinnerParticipantID = cloneInt(m.WinnerParticipantID)
	c.NextMatchID = cloneInt(m.NextMatchID)
	c.NextSlot = cloneInt(m.NextSlot)
	c.SourceMatch1ID = cloneInt(m.SourceMatch1ID)
	c.SourceMatch2ID = cloneInt(m.SourceMatch2ID)
	if m.ScheduledAt != nil {
		t := *m.ScheduledAt
		c.ScheduledAt = &t
	}
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	if m.Venue != nil {
		v := *m.Venue
		c.Venue = &v
	}
	if m.ActualDurationSeconds != nil {
		d := *m.ActualDurationSeconds
		c.ActualDurationSeconds = &d
	}
	if m.Sets != nil {
		c.Sets = append(SetScores(nil), m.Sets...)
	}
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// MatchScheduleUpdate carries only the schedule fields an organizer changed.
type MatchScheduleUpdate struct {
	ScheduledAt *time.Time
	Venue       *string
	Status      *MatchStatus
}

func (u MatchScheduleUpdate) IsEmpty() bool {
	return u.ScheduledAt == nil && u.Venue == nil && u.Status == nil
}
