package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/brackets"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
)

const DefaultOperationTimeout = 10 * time.Second

// --- Общие хелперы ---

func intPtr(v int) *int {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultOperationTimeout
	}
	return context.WithTimeout(ctx, d)
}

// manualTransitions lists the status changes an organizer may request directly.
// open <-> full follows occupancy and is never requested by hand.
var manualTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusDraft:      {models.StatusOpen},
	models.StatusOpen:       {models.StatusDraft, models.StatusInProgress},
	models.StatusFull:       {models.StatusInProgress},
	models.StatusInProgress: {models.StatusCompleted},
	models.StatusCompleted:  {},
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	for _, allowed := range manualTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// occupancyStatus returns open or full for a tournament that is taking registrations.
func occupancyStatus(approved, capacity int) models.TournamentStatus {
	if approved >= capacity {
		return models.StatusFull
	}
	return models.StatusOpen
}

// handleRepositoryError переводит ошибки репозиториев и генераторов в ошибки сервисов.
func handleRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("operation timed out and was not applied: %w", err)
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameConflict
	case errors.Is(err, repositories.ErrTournamentOverCapacity):
		return ErrCapacityExceeded
	case errors.Is(err, repositories.ErrTournamentInvalidData):
		return ErrValidationFailed
	case errors.Is(err, repositories.ErrParticipantConflict):
		return ErrRegistrationConflict
	case errors.Is(err, repositories.ErrParticipantTypeViolation):
		return ErrEntrantRequired
	case errors.Is(err, repositories.ErrParticipantTournamentInvalid):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrMatchDuplicateParticipants):
		return fmt.Errorf("%w: %v", ErrDuplicateParticipantSlot, err)
	case errors.Is(err, brackets.ErrInsufficientParticipants):
		return fmt.Errorf("%w: %v", ErrInsufficientParticipants, err)
	case errors.Is(err, brackets.ErrDuplicateParticipant):
		return fmt.Errorf("%w: %v", ErrDuplicateParticipantSlot, err)
	case errors.Is(err, brackets.ErrUnsupportedFormat):
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return err
}
