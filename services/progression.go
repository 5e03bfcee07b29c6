package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
)

// winnerProgression moves the winner of a completed elimination match into the
// slot its forward link names.
type winnerProgression struct {
	matchRepo repositories.MatchRepository
	now       func() time.Time
}

func newWinnerProgression(matchRepo repositories.MatchRepository, now func() time.Time) *winnerProgression {
	return &winnerProgression{matchRepo: matchRepo, now: now}
}

// Progress fills the downstream slot of completed and returns the matches it
// changed. A downstream bye shell completes with its sole occupant and the
// walk continues from it. Repeating a progression that already happened is a no-op.
func (p *winnerProgression) Progress(ctx context.Context, exec repositories.SQLExecutor, completed *models.Match) ([]*models.Match, error) {
	var changed []*models.Match
	current := completed
	for {
		target, filled, err := p.advance(ctx, exec, current)
		if err != nil {
			return changed, err
		}
		if target == nil {
			return changed, nil
		}
		if filled {
			changed = append(changed, target)
		}
		if !target.IsBye || target.Status == models.MatchCompleted {
			return changed, nil
		}

		// bye: единственный участник проходит дальше без игры
		occupant := target.Participant1ID
		if occupant == nil {
			occupant = target.Participant2ID
		}
		target.WinnerParticipantID = intPtr(*occupant)
		target.Status = models.MatchCompleted
		target.CompletedAt = timePtr(p.now().UTC())
		if err := p.matchRepo.SaveResult(ctx, exec, target); err != nil {
			return changed, err
		}
		if !filled {
			changed = append(changed, target)
		}
		current = target
	}
}

// advance handles one hop. It returns a nil target when there is nothing to move.
func (p *winnerProgression) advance(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) (*models.Match, bool, error) {
	if m.WinnerParticipantID == nil {
		return nil, false, nil
	}
	if m.NextMatchID == nil || m.NextSlot == nil {
		maxRound, err := p.matchRepo.MaxRound(ctx, exec, m.TournamentID)
		if err != nil {
			return nil, false, err
		}
		if m.Round < maxRound {
			return nil, false, fmt.Errorf("%w: match %d is in round %d of %d", ErrMissingForwardLink, m.ID, m.Round, maxRound)
		}
		return nil, false, nil
	}

	winner := *m.WinnerParticipantID
	slot := *m.NextSlot
	target, err := p.matchRepo.GetByID(ctx, exec, *m.NextMatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, false, fmt.Errorf("%w: match %d links to missing match %d", ErrMissingForwardLink, m.ID, *m.NextMatchID)
		}
		return nil, false, err
	}

	held, err := target.SlotParticipant(slot)
	if err != nil {
		return nil, false, fmt.Errorf("%w: match %d links to slot %d", ErrMissingForwardLink, m.ID, slot)
	}
	if held != nil {
		return target, false, classifyOccupied(target, slot, *held, winner)
	}
	if other, _ := target.SlotParticipant(models.OtherSlot(slot)); other != nil && *other == winner {
		return nil, false, fmt.Errorf("%w: participant %d already holds the other slot of match %d", ErrDuplicateParticipantSlot, winner, target.ID)
	}

	ok, err := p.matchRepo.FillSlot(ctx, exec, target.ID, slot, winner)
	if err != nil {
		return nil, false, handleRepositoryError(err)
	}
	if !ok {
		// Слот заняли между чтением и записью
		target, err = p.matchRepo.GetByID(ctx, exec, target.ID)
		if err != nil {
			return nil, false, err
		}
		held, _ = target.SlotParticipant(slot)
		if held == nil {
			return nil, false, fmt.Errorf("%w: slot %d of match %d could not be filled", ErrProgressionConflict, slot, target.ID)
		}
		return target, false, classifyOccupied(target, slot, *held, winner)
	}

	if slot == models.Slot1 {
		target.Participant1ID = intPtr(winner)
	} else {
		target.Participant2ID = intPtr(winner)
	}
	return target, true, nil
}

func classifyOccupied(target *models.Match, slot, held, winner int) error {
	if held == winner {
		return nil
	}
	return fmt.Errorf("%w: slot %d of match %d holds participant %d, winner is %d",
		ErrProgressionConflict, slot, target.ID, held, winner)
}
