package brackets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
)

var (
	ErrInsufficientParticipants = errors.New("at least 2 eligible participants are required")
	ErrUnsupportedFormat        = errors.New("unsupported bracket format")
	ErrDuplicateParticipant     = errors.New("participant would occupy both slots of a match")
)

// ScheduleOptions controls fixture spacing inside the tournament window.
type ScheduleOptions struct {
	MatchesPerDay int
	SlotInterval  time.Duration
}

type GenerateBracketParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant
	Schedule     ScheduleOptions
}

// BracketMatch is a match produced by a generator before it has a database identity.
// Links between matches use UID; the service resolves them to ids after insert.
type BracketMatch struct {
	UID             string
	Number          int
	Round           int
	OrderInRound    int
	Label           string
	Participant1ID  *int
	Participant2ID  *int
	SourceMatch1UID *string
	SourceMatch2UID *string
	NextMatchUID    *string
	NextSlot        *int
	IsBye           bool
	ScheduledAt     *time.Time
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}

// NewGenerator returns the generator for the tournament format.
func NewGenerator(format models.BracketFormat) (BracketGenerator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// validateParticipants enforces the minimum field and rejects repeated entries,
// which could otherwise be paired against themselves.
func validateParticipants(participants []*models.Participant) error {
	if len(participants) < 2 {
		return fmt.Errorf("%w: found %d", ErrInsufficientParticipants, len(participants))
	}
	seen := make(map[int]struct{}, len(participants))
	for _, p := range participants {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: participant %d listed twice", ErrDuplicateParticipant, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// checkPairs rejects generated matches whose two slots reference the same participant.
func checkPairs(matches []*BracketMatch) error {
	for _, m := range matches {
		if m.Participant1ID != nil && m.Participant2ID != nil && *m.Participant1ID == *m.Participant2ID {
			return fmt.Errorf("%w: match %s, participant %d", ErrDuplicateParticipant, m.UID, *m.Participant1ID)
		}
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}
