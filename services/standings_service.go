package services

import (
	"context"

	"github.com/aanujkhurana/AAA-SportsTournament/brackets"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
	"golang.org/x/sync/errgroup"
)

type StandingsService interface {
	GetStandings(ctx context.Context, tournamentID int) ([]models.TournamentStanding, error)
}

type standingsService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	standingRepo    repositories.TournamentStandingRepository
}

func NewStandingsService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.TournamentStandingRepository,
) StandingsService {
	return &standingsService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		standingRepo:    standingRepo,
	}
}

// GetStandings returns the stored final table of a completed tournament and a
// live table computed from recorded results otherwise.
func (s *standingsService) GetStandings(ctx context.Context, tournamentID int) ([]models.TournamentStanding, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	var (
		participants []*models.Participant
		matches      []*models.Match
	)
	approved := models.ParticipantApproved
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByTournament(gctx, nil, tournamentID, &approved)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, nil, tournamentID, repositories.MatchFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, handleRepositoryError(err)
	}
	return resolveStandings(ctx, s.standingRepo, t, participants, matches)
}

func resolveStandings(ctx context.Context, repo repositories.TournamentStandingRepository, t *models.Tournament, participants []*models.Participant, matches []*models.Match) ([]models.TournamentStanding, error) {
	if t.Status == models.StatusCompleted {
		stored, err := repo.ListByTournament(ctx, nil, t.ID)
		if err != nil {
			return nil, err
		}
		if len(stored) > 0 {
			return stored, nil
		}
	}
	return brackets.CalculateStandings(t.Format, participants, matches), nil
}
