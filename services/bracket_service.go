package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/brackets"
	"github.com/aanujkhurana/AAA-SportsTournament/metrics"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
	"golang.org/x/sync/errgroup"
)

type GenerateBracketInput struct {
	// Confirm allows discarding matches that have already started or finished.
	Confirm bool `json:"confirm"`
}

// BracketView is the read model of a tournament's fixture.
type BracketView struct {
	Tournament   *models.Tournament          `json:"tournament"`
	Participants []*models.Participant       `json:"participants"`
	Matches      []*models.Match             `json:"matches"`
	Standings    []models.TournamentStanding `json:"standings"`
}

type BracketService interface {
	GenerateBracket(ctx context.Context, tournamentID int, input GenerateBracketInput) ([]*models.Match, error)
	GetBracket(ctx context.Context, tournamentID int) (*BracketView, error)
}

// ServiceOptions are shared by the services that mutate a tournament.
type ServiceOptions struct {
	Schedule brackets.ScheduleOptions
	Timeout  time.Duration
	Now      func() time.Time
	Notifier Notifier
	Reporter OperatorReporter
	Archiver BracketArchiver
	Locks    *TournamentLocks
	Logger   *slog.Logger
}

func (o ServiceOptions) withDefaults() ServiceOptions {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultOperationTimeout
	}
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Reporter == nil {
		o.Reporter = NewLogReporter(o.Logger)
	}
	if o.Locks == nil {
		o.Locks = NewTournamentLocks()
	}
	return o
}

type bracketService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	standingRepo    repositories.TournamentStandingRepository
	progression     *winnerProgression
	opts            ServiceOptions
}

func NewBracketService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.TournamentStandingRepository,
	opts ServiceOptions,
) BracketService {
	opts = opts.withDefaults()
	return &bracketService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		standingRepo:    standingRepo,
		progression:     newWinnerProgression(matchRepo, opts.Now),
		opts:            opts,
	}
}

func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID int, input GenerateBracketInput) ([]*models.Match, error) {
	unlock := s.opts.Locks.Lock(tournamentID)
	defer unlock()
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var (
		tournament *models.Tournament
		created    []*models.Match
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		tournament = t
		if t.Status == models.StatusCompleted {
			return fmt.Errorf("%w: tournament %d is already completed", ErrTournamentInvalidStatusTransition, t.ID)
		}

		approved := models.ParticipantApproved
		participants, err := s.participantRepo.ListByTournament(ctx, exec, t.ID, &approved)
		if err != nil {
			return err
		}
		if len(participants) > t.MaxParticipants {
			return fmt.Errorf("%w: %d approved participants for %d places", ErrCapacityExceeded, len(participants), t.MaxParticipants)
		}
		if len(participants) < 2 {
			return fmt.Errorf("%w: found %d", ErrInsufficientParticipants, len(participants))
		}

		started, err := s.matchRepo.CountStarted(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		if started > 0 && !input.Confirm {
			return fmt.Errorf("%w: %d matches started", ErrRegenerationNotConfirmed, started)
		}

		generator, err := brackets.NewGenerator(t.Format)
		if err != nil {
			return err
		}
		planned, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
			Tournament:   t,
			Participants: participants,
			Schedule:     s.opts.Schedule,
		})
		if err != nil {
			return err
		}

		// Старая сетка удаляется целиком
		if _, err := s.matchRepo.DeleteByTournament(ctx, exec, t.ID); err != nil {
			return err
		}
		if err := s.standingRepo.DeleteByTournamentID(ctx, exec, t.ID); err != nil {
			return err
		}
		if t.WinnerParticipantID != nil {
			if err := s.tournamentRepo.UpdateOverallWinner(ctx, exec, t.ID, nil); err != nil {
				return err
			}
		}

		if err := s.persist(ctx, exec, t.ID, planned); err != nil {
			return err
		}

		status := occupancyStatus(len(participants), t.MaxParticipants)
		if err := s.tournamentRepo.UpdateOccupancy(ctx, exec, t.ID, len(participants), status); err != nil {
			return err
		}
		t.CurrentParticipants = len(participants)
		t.Status = status
		t.WinnerParticipantID = nil

		created, err = s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.MatchFilter{})
		return err
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	metrics.BracketsGenerated.WithLabelValues(string(tournament.Format)).Inc()
	s.opts.Logger.InfoContext(ctx, "bracket generated",
		slog.Int("tournament_id", tournament.ID),
		slog.String("format", string(tournament.Format)),
		slog.Int("matches", len(created)))
	s.opts.Notifier.Notify(ctx, newEvent(models.EventBracketGenerated, tournament.ID, nil, created, s.opts.Now()))
	return created, nil
}

// persist inserts the planned matches, resolves their links to ids and
// advances first-round byes.
func (s *bracketService) persist(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, planned []*brackets.BracketMatch) error {
	now := s.opts.Now().UTC()
	byUID := make(map[string]*models.Match, len(planned))
	var byes []*models.Match

	for _, bm := range planned {
		m := &models.Match{
			TournamentID:   tournamentID,
			Number:         bm.Number,
			Round:          bm.Round,
			Position:       bm.OrderInRound,
			Label:          bm.Label,
			Participant1ID: bm.Participant1ID,
			Participant2ID: bm.Participant2ID,
			ScheduledAt:    bm.ScheduledAt,
			Status:         models.MatchScheduled,
			IsBye:          bm.IsBye,
		}
		// bye первого раунда сразу завершён
		if bm.IsBye && bm.Participant1ID != nil {
			m.Status = models.MatchCompleted
			m.WinnerParticipantID = intPtr(*bm.Participant1ID)
			m.CompletedAt = timePtr(now)
			byes = append(byes, m)
		}
		if err := s.matchRepo.Create(ctx, exec, m); err != nil {
			return fmt.Errorf("failed to create match %s: %w", bm.UID, err)
		}
		byUID[bm.UID] = m
	}

	resolve := func(uid *string) *int {
		if uid == nil {
			return nil
		}
		if m, ok := byUID[*uid]; ok {
			return intPtr(m.ID)
		}
		return nil
	}
	for _, bm := range planned {
		if bm.NextMatchUID == nil && bm.SourceMatch1UID == nil && bm.SourceMatch2UID == nil {
			continue
		}
		m := byUID[bm.UID]
		m.NextMatchID = resolve(bm.NextMatchUID)
		m.NextSlot = bm.NextSlot
		m.SourceMatch1ID = resolve(bm.SourceMatch1UID)
		m.SourceMatch2ID = resolve(bm.SourceMatch2UID)
		if err := s.matchRepo.UpdateLinks(ctx, exec, m.ID, m.NextMatchID, m.NextSlot, m.SourceMatch1ID, m.SourceMatch2ID); err != nil {
			return err
		}
	}

	for _, bye := range byes {
		if _, err := s.progression.Progress(ctx, exec, bye); err != nil {
			return fmt.Errorf("failed to advance bye in match %d: %w", bye.Number, err)
		}
	}
	return nil
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	view := &BracketView{}
	approved := models.ParticipantApproved

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gctx, nil, tournamentID)
		view.Tournament = t
		return err
	})
	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gctx, nil, tournamentID, &approved)
		view.Participants = participants
		return err
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gctx, nil, tournamentID, repositories.MatchFilter{})
		view.Matches = matches
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, handleRepositoryError(err)
	}

	standings, err := resolveStandings(ctx, s.standingRepo, view.Tournament, view.Participants, view.Matches)
	if err != nil {
		return nil, err
	}
	view.Standings = standings
	return view, nil
}
