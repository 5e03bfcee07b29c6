package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
)

type CreateTournamentInput struct {
	Name            string               `json:"name"`
	Sport           string               `json:"sport"`
	Format          models.BracketFormat `json:"format"`
	MaxParticipants int                  `json:"max_participants"`
	StartDate       time.Time            `json:"start_date"`
	EndDate         time.Time            `json:"end_date"`
	RoundRobinLegs  int                  `json:"round_robin_legs,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error)
	UpdateTournamentStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error
	// StartDueTournaments moves open or full tournaments past their start date into play.
	StartDueTournaments(ctx context.Context) (int, error)
}

type tournamentService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	finisher       *tournamentFinisher
	opts           ServiceOptions
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.TournamentStandingRepository,
	opts ServiceOptions,
) TournamentService {
	return &tournamentService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		finisher: &tournamentFinisher{
			tournamentRepo:  tournamentRepo,
			participantRepo: participantRepo,
			matchRepo:       matchRepo,
			standingRepo:    standingRepo,
		},
		opts: opts.withDefaults(),
	}
}

func validateTournamentInput(input *CreateTournamentInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return ErrTournamentNameRequired
	}
	if !input.Format.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, input.Format)
	}
	if input.MaxParticipants < 2 {
		return ErrTournamentInvalidCapacity
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() || input.EndDate.Before(input.StartDate) {
		return ErrTournamentInvalidDateRange
	}
	return nil
}

func (s *tournamentService) CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(&input); err != nil {
		return nil, err
	}
	legs := 1
	if input.Format == models.FormatRoundRobin {
		legs = models.RoundRobinSettings{Legs: input.RoundRobinLegs}.Normalize().Legs
	}

	t := &models.Tournament{
		Name:            input.Name,
		Sport:           strings.TrimSpace(input.Sport),
		Format:          input.Format,
		MaxParticipants: input.MaxParticipants,
		Status:          models.StatusDraft,
		StartDate:       input.StartDate.UTC(),
		EndDate:         input.EndDate.UTC(),
		OrganizerID:     organizerID,
		RoundRobinLegs:  legs,
	}
	if err := s.tournamentRepo.Create(ctx, nil, t); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.opts.Logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", t.ID), slog.Int("organizer_id", organizerID), slog.String("format", string(t.Format)))
	return t, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, ErrTournamentInvalidStatus
	}
	if filter.Format != nil && !filter.Format.IsValid() {
		return nil, ErrUnsupportedFormat
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *tournamentService) UpdateTournamentStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error) {
	if !status.IsValid() {
		return nil, ErrTournamentInvalidStatus
	}
	unlock := s.opts.Locks.Lock(id)
	defer unlock()
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var (
		updated  *models.Tournament
		snapshot *BracketSnapshot
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return err
		}
		if !isValidStatusTransition(t.Status, status) {
			return fmt.Errorf("%w: from %s to %s", ErrTournamentInvalidStatusTransition, t.Status, status)
		}
		updated = t
		if t.Status == status {
			return nil
		}

		switch status {
		case models.StatusOpen:
			// draft -> open, но при полном составе сразу full
			status = occupancyStatus(t.CurrentParticipants, t.MaxParticipants)
		case models.StatusInProgress:
			rounds, err := s.matchRepo.MaxRound(ctx, exec, t.ID)
			if err != nil {
				return err
			}
			if rounds == 0 {
				return fmt.Errorf("%w: no bracket has been generated", ErrTournamentInvalidStatusTransition)
			}
		case models.StatusCompleted:
			matches, err := s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.MatchFilter{})
			if err != nil {
				return err
			}
			snapshot, err = s.finisher.finish(ctx, exec, t, matches, s.opts.Now())
			return err
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, status); err != nil {
			return err
		}
		t.Status = status
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	s.opts.Logger.InfoContext(ctx, "tournament status changed",
		slog.Int("tournament_id", id), slog.String("status", string(updated.Status)))
	if snapshot != nil && s.opts.Archiver != nil {
		archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		defer cancel()
		if _, err := s.opts.Archiver.Archive(archiveCtx, snapshot); err != nil {
			s.opts.Logger.ErrorContext(ctx, "failed to archive completed bracket",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	return updated, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	unlock := s.opts.Locks.Lock(id)
	defer unlock()

	if err := s.tournamentRepo.Delete(ctx, nil, id); err != nil {
		return handleRepositoryError(err)
	}
	s.opts.Logger.InfoContext(ctx, "tournament deleted", slog.Int("tournament_id", id))
	return nil
}

func (s *tournamentService) StartDueTournaments(ctx context.Context) (int, error) {
	now := s.opts.Now().UTC()
	due, err := s.tournamentRepo.ListDueToStart(ctx, nil, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list tournaments due to start: %w", err)
	}

	started := 0
	for _, candidate := range due {
		ok, err := s.startTournament(ctx, candidate.ID)
		if err != nil {
			s.opts.Logger.ErrorContext(ctx, "failed to start tournament",
				slog.Int("tournament_id", candidate.ID), slog.Any("error", err))
			continue
		}
		if ok {
			started++
		}
	}
	return started, nil
}

func (s *tournamentService) startTournament(ctx context.Context, id int) (bool, error) {
	unlock := s.opts.Locks.Lock(id)
	defer unlock()
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	started := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return err
		}
		// статус мог измениться после выборки
		if t.Status != models.StatusOpen && t.Status != models.StatusFull {
			return nil
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusInProgress); err != nil {
			return err
		}
		started = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if started {
		s.opts.Logger.InfoContext(ctx, "tournament started on schedule", slog.Int("tournament_id", id))
	}
	return started, nil
}
