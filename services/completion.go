package services

import (
	"context"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/brackets"
	"github.com/aanujkhurana/AAA-SportsTournament/metrics"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
)

// tournamentFinisher closes a tournament once its deciding matches are complete
// and stores the final table.
type tournamentFinisher struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	standingRepo    repositories.TournamentStandingRepository
}

// finishIfDone returns a snapshot when t is complete after this call and nil
// while play continues. An already completed tournament gets its winner and
// table refreshed, which is how corrections reach the stored standings.
func (f *tournamentFinisher) finishIfDone(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, now time.Time) (*BracketSnapshot, error) {
	matches, err := f.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.MatchFilter{})
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusCompleted && !bracketFinished(t.Format, matches) {
		return nil, nil
	}
	return f.finish(ctx, exec, t, matches, now)
}

// finish marks t completed regardless of unplayed matches.
func (f *tournamentFinisher) finish(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, matches []*models.Match, now time.Time) (*BracketSnapshot, error) {
	approved := models.ParticipantApproved
	participants, err := f.participantRepo.ListByTournament(ctx, exec, t.ID, &approved)
	if err != nil {
		return nil, err
	}
	standings := brackets.CalculateStandings(t.Format, participants, matches)
	winner := overallWinner(t.Format, matches, standings)

	if err := f.tournamentRepo.UpdateOverallWinner(ctx, exec, t.ID, winner); err != nil {
		return nil, err
	}
	alreadyCompleted := t.Status == models.StatusCompleted
	if !alreadyCompleted {
		if err := f.tournamentRepo.UpdateStatus(ctx, exec, t.ID, models.StatusCompleted); err != nil {
			return nil, err
		}
	}
	if err := f.standingRepo.ReplaceForTournament(ctx, exec, t.ID, standings); err != nil {
		return nil, err
	}
	t.Status = models.StatusCompleted
	t.WinnerParticipantID = winner
	if !alreadyCompleted {
		metrics.TournamentsCompleted.Inc()
	}

	return &BracketSnapshot{
		Tournament:   t,
		Participants: participants,
		Matches:      matches,
		Standings:    standings,
		ArchivedAt:   now.UTC(),
	}, nil
}

func bracketFinished(format models.BracketFormat, matches []*models.Match) bool {
	if len(matches) == 0 {
		return false
	}
	if format.IsElimination() {
		final := finalMatch(matches)
		return final != nil && final.Status == models.MatchCompleted && final.WinnerParticipantID != nil
	}
	played := 0
	for _, m := range matches {
		switch m.Status {
		case models.MatchCompleted:
			played++
		case models.MatchCancelled:
		default:
			return false
		}
	}
	return played > 0
}

// finalMatch is the only match of the last round.
func finalMatch(matches []*models.Match) *models.Match {
	var final *models.Match
	for _, m := range matches {
		if final == nil || m.Round > final.Round {
			final = m
		}
	}
	return final
}

func overallWinner(format models.BracketFormat, matches []*models.Match, standings []models.TournamentStanding) *int {
	if format.IsElimination() {
		if final := finalMatch(matches); final != nil && final.WinnerParticipantID != nil {
			return intPtr(*final.WinnerParticipantID)
		}
		return nil
	}
	if len(standings) == 0 || standings[0].GamesPlayed == 0 {
		return nil
	}
	return intPtr(standings[0].ParticipantID)
}
