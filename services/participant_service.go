package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
)

type RegisterParticipantInput struct {
	UserID      *int   `json:"user_id,omitempty"`
	TeamID      *int   `json:"team_id,omitempty"`
	DisplayName string `json:"display_name"`
}

// ParticipantService управляет заявками и заполненностью турнира.
type ParticipantService interface {
	Register(ctx context.Context, tournamentID int, input RegisterParticipantInput) (*models.Participant, error)
	ChangeStatus(ctx context.Context, participantID int, status models.ParticipantStatus) (*models.Participant, error)
	ListParticipants(ctx context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error)
	GetParticipant(ctx context.Context, participantID int) (*models.Participant, error)
}

type participantService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	opts            ServiceOptions
}

func NewParticipantService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	opts ServiceOptions,
) ParticipantService {
	return &participantService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		opts:            opts.withDefaults(),
	}
}

func defaultDisplayName(input RegisterParticipantInput) string {
	if input.UserID != nil {
		return fmt.Sprintf("Player %d", *input.UserID)
	}
	return fmt.Sprintf("Team %d", *input.TeamID)
}

func (s *participantService) Register(ctx context.Context, tournamentID int, input RegisterParticipantInput) (*models.Participant, error) {
	if (input.UserID == nil) == (input.TeamID == nil) {
		return nil, ErrEntrantRequired
	}
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		name = defaultDisplayName(input)
	}

	unlock := s.opts.Locks.Lock(tournamentID)
	defer unlock()
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	p := &models.Participant{
		TournamentID: tournamentID,
		UserID:       input.UserID,
		TeamID:       input.TeamID,
		DisplayName:  name,
		Status:       models.ParticipantPending,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !t.Status.AcceptsRegistrations() {
			return fmt.Errorf("%w: tournament is %s", ErrRegistrationNotOpen, t.Status)
		}
		if t.Status == models.StatusFull {
			return fmt.Errorf("%w: all %d places are taken", ErrCapacityExceeded, t.MaxParticipants)
		}
		return s.participantRepo.Create(ctx, exec, p)
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.opts.Logger.InfoContext(ctx, "participant registered",
		slog.Int("tournament_id", tournamentID), slog.Int("participant_id", p.ID))
	return p, nil
}

// ChangeStatus moves a registration between states and keeps the tournament's
// occupancy and open/full status in step with the approved count.
func (s *participantService) ChangeStatus(ctx context.Context, participantID int, status models.ParticipantStatus) (*models.Participant, error) {
	if !status.IsValid() {
		return nil, ErrInvalidParticipantStatus
	}
	existing, err := s.participantRepo.FindByID(ctx, nil, participantID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	unlock := s.opts.Locks.Lock(existing.TournamentID)
	defer unlock()
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var updated *models.Participant
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, existing.TournamentID)
		if err != nil {
			return err
		}
		if !t.Status.AcceptsRegistrations() {
			return fmt.Errorf("%w: tournament is %s", ErrRegistrationNotOpen, t.Status)
		}
		p, err := s.participantRepo.FindByID(ctx, exec, participantID)
		if err != nil {
			return err
		}
		if p.Status == status {
			updated = p
			return nil
		}

		approved, err := s.participantRepo.CountByStatus(ctx, exec, t.ID, models.ParticipantApproved)
		if err != nil {
			return err
		}
		switch {
		case status == models.ParticipantApproved:
			approved++
		case p.Status == models.ParticipantApproved:
			approved--
		}
		if approved > t.MaxParticipants {
			return fmt.Errorf("%w: %d places", ErrCapacityExceeded, t.MaxParticipants)
		}

		if err := s.participantRepo.UpdateStatus(ctx, exec, p.ID, status); err != nil {
			return err
		}
		next := t.Status
		if t.Status != models.StatusDraft {
			next = occupancyStatus(approved, t.MaxParticipants)
		}
		if err := s.tournamentRepo.UpdateOccupancy(ctx, exec, t.ID, approved, next); err != nil {
			return err
		}
		p.Status = status
		updated = p
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.opts.Logger.InfoContext(ctx, "participant status changed",
		slog.Int("participant_id", participantID), slog.String("status", string(status)))
	return updated, nil
}

func (s *participantService) ListParticipants(ctx context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error) {
	if status != nil && !status.IsValid() {
		return nil, ErrInvalidParticipantStatus
	}
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	return participants, nil
}

func (s *participantService) GetParticipant(ctx context.Context, participantID int) (*models.Participant, error) {
	p, err := s.participantRepo.FindByID(ctx, nil, participantID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return p, nil
}
