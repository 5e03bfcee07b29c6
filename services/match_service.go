package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/metrics"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
)

const archiveTimeout = 30 * time.Second

type RecordResultInput struct {
	Participant1Score int               `json:"participant1_score"`
	Participant2Score int               `json:"participant2_score"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	Forfeit           bool              `json:"forfeit"`
	ForfeitingSlot    *int              `json:"forfeiting_slot,omitempty"`
	Sets              []models.SetScore `json:"sets,omitempty"`
	// Correction overwrites an already recorded result.
	Correction bool `json:"correction"`
}

// RecordResultOutcome reports the stored result and what happened downstream.
// ProgressionErr is set when the result was stored but the winner could not
// be moved on; the result itself stays committed.
type RecordResultOutcome struct {
	Match               *models.Match   `json:"match"`
	Progressed          []*models.Match `json:"progressed"`
	ProgressionErr      error           `json:"-"`
	TournamentCompleted bool            `json:"tournament_completed"`
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListMatches(ctx context.Context, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error)
	RecordResult(ctx context.Context, matchID int, input RecordResultInput) (*RecordResultOutcome, error)
	UpdateSchedule(ctx context.Context, matchID int, update models.MatchScheduleUpdate) (*models.Match, error)
}

type matchService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	progression    *winnerProgression
	finisher       *tournamentFinisher
	opts           ServiceOptions
}

func NewMatchService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.TournamentStandingRepository,
	opts ServiceOptions,
) MatchService {
	opts = opts.withDefaults()
	return &matchService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		progression:    newWinnerProgression(matchRepo, opts.Now),
		finisher: &tournamentFinisher{
			tournamentRepo:  tournamentRepo,
			participantRepo: participantRepo,
			matchRepo:       matchRepo,
			standingRepo:    standingRepo,
		},
		opts: opts,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return m, nil
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func validateResultInput(input RecordResultInput) error {
	if input.Participant1Score < 0 || input.Participant2Score < 0 {
		return ErrInvalidScore
	}
	for _, set := range input.Sets {
		if set.Participant1 < 0 || set.Participant2 < 0 {
			return fmt.Errorf("%w: set scores must be non-negative", ErrInvalidScore)
		}
	}
	if input.Forfeit {
		if input.ForfeitingSlot == nil || (*input.ForfeitingSlot != models.Slot1 && *input.ForfeitingSlot != models.Slot2) {
			return ErrForfeitSideRequired
		}
	}
	return nil
}

// applyResult writes the result into m or explains why it cannot take one.
func applyResult(format models.BracketFormat, m *models.Match, input RecordResultInput, now time.Time) error {
	if m.IsBye || m.Status == models.MatchCancelled {
		return fmt.Errorf("%w: match %d", ErrMatchNotPlayable, m.ID)
	}
	if !m.HasBothParticipants() {
		return fmt.Errorf("%w: match %d", ErrParticipantsIncomplete, m.ID)
	}
	if m.HasDuplicateParticipants() {
		return fmt.Errorf("%w: match %d", ErrDuplicateParticipantSlot, m.ID)
	}
	if m.Status == models.MatchCompleted && !input.Correction {
		return fmt.Errorf("%w: match %d", ErrResultAlreadyRecorded, m.ID)
	}

	score1, score2 := input.Participant1Score, input.Participant2Score
	var sets models.SetScores
	if len(input.Sets) > 0 {
		sets = append(sets, input.Sets...)
		score1, score2 = sets.Won()
	}

	var winner *int
	switch {
	case input.Forfeit:
		w, _ := m.SlotParticipant(models.OtherSlot(*input.ForfeitingSlot))
		winner = intPtr(*w)
	case score1 > score2:
		winner = intPtr(*m.Participant1ID)
	case score2 > score1:
		winner = intPtr(*m.Participant2ID)
	default:
		if !format.AllowsTies() {
			return fmt.Errorf("%w: match %d ended %d-%d", ErrTieNotAllowed, m.ID, score1, score2)
		}
	}

	completedAt := now.UTC()
	switch {
	case input.CompletedAt != nil:
		completedAt = input.CompletedAt.UTC()
	case m.CompletedAt != nil:
		completedAt = *m.CompletedAt
	}

	m.Participant1Score = intPtr(score1)
	m.Participant2Score = intPtr(score2)
	m.Sets = sets
	m.Forfeit = input.Forfeit
	m.ForfeitingSlot = nil
	if input.Forfeit {
		m.ForfeitingSlot = intPtr(*input.ForfeitingSlot)
	}
	m.WinnerParticipantID = winner
	m.Status = models.MatchCompleted
	m.CompletedAt = &completedAt
	m.ActualDurationSeconds = nil
	if m.ScheduledAt != nil {
		d := completedAt.Sub(*m.ScheduledAt)
		if d < 0 {
			d = 0
		}
		secs := int64(d / time.Second)
		m.ActualDurationSeconds = &secs
	}
	return nil
}

func resultOutcome(m *models.Match) string {
	switch {
	case m.Forfeit:
		return "forfeit"
	case m.WinnerParticipantID == nil:
		return "tie"
	}
	return "win"
}

func (s *matchService) RecordResult(ctx context.Context, matchID int, input RecordResultInput) (*RecordResultOutcome, error) {
	if err := validateResultInput(input); err != nil {
		return nil, err
	}
	existing, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	tournamentID := existing.TournamentID

	unlock := s.opts.Locks.Lock(tournamentID)
	defer unlock()
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var (
		tournament *models.Tournament
		match      *models.Match
		snapshot   *BracketSnapshot
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		m, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if err := applyResult(t.Format, m, input, s.opts.Now()); err != nil {
			return err
		}
		if err := s.matchRepo.SaveResult(ctx, exec, m); err != nil {
			return err
		}
		// первый результат запускает турнир
		if t.Status == models.StatusOpen || t.Status == models.StatusFull {
			if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, models.StatusInProgress); err != nil {
				return err
			}
			t.Status = models.StatusInProgress
		}
		if !t.Format.IsElimination() {
			snapshot, err = s.finisher.finishIfDone(ctx, exec, t, s.opts.Now())
			if err != nil {
				return err
			}
		}
		tournament, match = t, m
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	metrics.ResultsRecorded.WithLabelValues(string(tournament.Format), resultOutcome(match)).Inc()
	outcome := &RecordResultOutcome{Match: match, Progressed: []*models.Match{}}

	if tournament.Format.IsElimination() && match.WinnerParticipantID != nil {
		var progressed []*models.Match
		err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
			t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
			if err != nil {
				return err
			}
			progressed, err = s.progression.Progress(ctx, exec, match)
			if err != nil {
				return err
			}
			snapshot, err = s.finisher.finishIfDone(ctx, exec, t, s.opts.Now())
			if err == nil && snapshot != nil {
				tournament = t
			}
			return err
		})
		if err != nil {
			outcome.ProgressionErr = err
			s.reportProgressionFailure(ctx, match, err)
		} else if progressed != nil {
			outcome.Progressed = progressed
		}
	}

	outcome.TournamentCompleted = snapshot != nil
	s.opts.Logger.InfoContext(ctx, "match result recorded",
		slog.Int("tournament_id", tournamentID),
		slog.Int("match_id", match.ID),
		slog.Bool("correction", input.Correction),
		slog.Int("progressed", len(outcome.Progressed)))

	s.opts.Notifier.Notify(ctx, newEvent(models.EventMatchResultRecorded, tournamentID, match, outcome.Progressed, s.opts.Now()))
	if snapshot != nil {
		s.archive(ctx, snapshot)
	}
	return outcome, nil
}

func (s *matchService) reportProgressionFailure(ctx context.Context, match *models.Match, err error) {
	reason := "other"
	switch {
	case errors.Is(err, ErrProgressionConflict):
		reason = "conflict"
	case errors.Is(err, ErrMissingForwardLink):
		reason = "missing_link"
	case errors.Is(err, ErrDuplicateParticipantSlot):
		reason = "duplicate_slot"
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	}
	metrics.ProgressionFailures.WithLabelValues(reason).Inc()
	s.opts.Reporter.ReportProgressionFailure(ctx, match, err)
}

func (s *matchService) archive(ctx context.Context, snapshot *BracketSnapshot) {
	if s.opts.Archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	location, err := s.opts.Archiver.Archive(ctx, snapshot)
	if err != nil {
		s.opts.Logger.ErrorContext(ctx, "failed to archive completed bracket",
			slog.Int("tournament_id", snapshot.Tournament.ID), slog.Any("error", err))
		return
	}
	s.opts.Logger.InfoContext(ctx, "completed bracket archived",
		slog.Int("tournament_id", snapshot.Tournament.ID), slog.String("location", location))
}

func (s *matchService) UpdateSchedule(ctx context.Context, matchID int, update models.MatchScheduleUpdate) (*models.Match, error) {
	if update.IsEmpty() {
		return nil, ErrEmptyScheduleEdit
	}
	if update.Status != nil && (!update.Status.IsValid() || *update.Status == models.MatchCompleted) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMatchStatus, *update.Status)
	}
	existing, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	unlock := s.opts.Locks.Lock(existing.TournamentID)
	defer unlock()
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var updated *models.Match
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		if _, err := s.tournamentRepo.GetForUpdate(ctx, exec, existing.TournamentID); err != nil {
			return err
		}
		m, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if m.IsBye {
			return fmt.Errorf("%w: match %d", ErrMatchNotPlayable, m.ID)
		}
		if m.Status == models.MatchCompleted {
			return fmt.Errorf("%w: match %d", ErrMatchAlreadyPlayed, m.ID)
		}
		if err := s.matchRepo.UpdateSchedule(ctx, exec, m.ID, update); err != nil {
			return err
		}
		updated, err = s.matchRepo.GetByID(ctx, exec, m.ID)
		return err
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	s.opts.Notifier.Notify(ctx, newEvent(models.EventScheduleChanged, updated.TournamentID, updated, nil, s.opts.Now()))
	return updated, nil
}
