package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/jmoiron/sqlx"
)

var (
	ErrStandingParticipantInvalid = errors.New("standing participant conflict or invalid")
	ErrStandingTournamentInvalid  = errors.New("standing tournament conflict or invalid")
)

// TournamentStandingRepository stores the final table of a completed tournament.
type TournamentStandingRepository interface {
	// ReplaceForTournament swaps the stored table for standings in one statement pair.
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, standings []models.TournamentStanding) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.TournamentStanding, error)
	DeleteByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresTournamentStandingRepository struct {
	db *sqlx.DB // Main DB connection, used if exec is nil
}

func NewPostgresTournamentStandingRepository(db *sqlx.DB) TournamentStandingRepository {
	return &postgresTournamentStandingRepository{db: db}
}

func (r *postgresTournamentStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentStandingRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, standings []models.TournamentStanding) error {
	if err := r.DeleteByTournamentID(ctx, exec, tournamentID); err != nil {
		return err
	}
	if len(standings) == 0 {
		return nil
	}

	now := time.Now().UTC()
	builder := psql.Insert("tournament_standings").Columns(
		"tournament_id", "participant_id", "points", "games_played", "wins", "draws", "losses",
		"score_for", "score_against", "score_difference", "eliminated", "rank", "updated_at",
	)
	for _, s := range standings {
		builder = builder.Values(
			tournamentID, s.ParticipantID, s.Points, s.GamesPlayed, s.Wins, s.Draws, s.Losses,
			s.ScoreFor, s.ScoreAgainst, s.ScoreDifference, s.Eliminated, s.Rank, now,
		)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build standings insert: %w", err)
	}

	if _, err := r.getExecutor(exec).ExecContext(ctx, query, args...); err != nil {
		_, constraint, ok := constraintName(err)
		if ok {
			switch constraint {
			case "tournament_standings_participant_id_fkey":
				return ErrStandingParticipantInvalid
			case "tournament_standings_tournament_id_fkey":
				return ErrStandingTournamentInvalid
			}
		}
		return fmt.Errorf("failed to store standings for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresTournamentStandingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.TournamentStanding, error) {
	query := `
		SELECT s.id, s.tournament_id, s.participant_id, s.points, s.games_played, s.wins, s.draws, s.losses,
		       s.score_for, s.score_against, s.score_difference, s.eliminated, s.rank, s.updated_at,
		       p.display_name
		FROM tournament_standings s
		JOIN participants p ON p.id = s.participant_id
		WHERE s.tournament_id = $1
		ORDER BY s.rank ASC`

	rows, err := r.getExecutor(exec).QueryxContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	standings := make([]models.TournamentStanding, 0)
	for rows.Next() {
		var s models.TournamentStanding
		if err := rows.Scan(
			&s.ID, &s.TournamentID, &s.ParticipantID, &s.Points, &s.GamesPlayed, &s.Wins, &s.Draws, &s.Losses,
			&s.ScoreFor, &s.ScoreAgainst, &s.ScoreDifference, &s.Eliminated, &s.Rank, &s.UpdatedAt,
			&s.DisplayName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan standing row: %w", err)
		}
		standings = append(standings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during standing rows iteration: %w", err)
	}
	return standings, nil
}

func (r *postgresTournamentStandingRepository) DeleteByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	if _, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM tournament_standings WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete standings for tournament %d: %w", tournamentID, err)
	}
	return nil
}
