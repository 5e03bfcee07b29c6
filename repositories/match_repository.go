package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/jmoiron/sqlx"
)

var (
	ErrMatchNotFound              = errors.New("match not found")
	ErrMatchTournamentInvalid     = errors.New("match tournament conflict or invalid")
	ErrMatchParticipantInvalid    = errors.New("match participant conflict or invalid")
	ErrMatchDuplicateParticipants = errors.New("match slots reference the same participant")
	ErrMatchWinnerInvalid         = errors.New("match winner is not one of its participants")
	ErrMatchNumberConflict        = errors.New("match number already used in this tournament")
)

type MatchFilter struct {
	Round  *int
	Status *models.MatchStatus
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error)
	UpdateLinks(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID, nextSlot, sourceMatch1ID, sourceMatch2ID *int) error
	// FillSlot sets the slot only while it is still empty. It reports false when
	// the slot was already occupied, leaving the row unchanged.
	FillSlot(ctx context.Context, exec SQLExecutor, matchID int, slot int, participantID int) (bool, error)
	SaveResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateSchedule(ctx context.Context, exec SQLExecutor, matchID int, update models.MatchScheduleUpdate) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
	MaxRound(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	CountUnfinished(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	CountStarted(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

const matchColumns = `id, tournament_id, number, round, position, label, participant1_id, participant2_id,
	scheduled_at, venue, status, participant1_score, participant2_score, forfeit, forfeiting_slot, sets,
	completed_at, actual_duration_seconds, winner_participant_id, next_match_id, next_slot,
	source_match1_id, source_match2_id, is_bye, created_at`

type postgresMatchRepository struct {
	db *sqlx.DB
}

func NewPostgresMatchRepository(db *sqlx.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, number, round, position, label, participant1_id, participant2_id,
			 scheduled_at, venue, status, winner_participant_id, completed_at, is_bye)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowxContext(ctx, query,
		m.TournamentID,
		m.Number,
		m.Round,
		m.Position,
		m.Label,
		m.Participant1ID,
		m.Participant2ID,
		m.ScheduledAt,
		m.Venue,
		m.Status,
		m.WinnerParticipantID,
		m.CompletedAt,
		m.IsBye,
	).Scan(&m.ID, &m.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	var m models.Match
	err := sqlx.GetContext(ctx, r.getExecutor(exec), &m, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	return &m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error) {
	builder := psql.Select(matchColumns).
		From("matches").
		Where(sq.Eq{"tournament_id": tournamentID})
	if filter.Round != nil {
		builder = builder.Where(sq.Eq{"round": *filter.Round})
	}
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filter.Status})
	}
	query, args, err := builder.OrderBy("number ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build match list query: %w", err)
	}

	matches := make([]*models.Match, 0)
	if err := sqlx.SelectContext(ctx, r.getExecutor(exec), &matches, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID, nextSlot, sourceMatch1ID, sourceMatch2ID *int) error {
	query := `
		UPDATE matches
		SET next_match_id = $1, next_slot = $2, source_match1_id = $3, source_match2_id = $4
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, nextMatchID, nextSlot, sourceMatch1ID, sourceMatch2ID, matchID)
	if err != nil {
		return fmt.Errorf("UpdateLinks: failed to execute query for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) FillSlot(ctx context.Context, exec SQLExecutor, matchID int, slot int, participantID int) (bool, error) {
	var query string
	switch slot {
	case models.Slot1:
		query = `UPDATE matches SET participant1_id = $1 WHERE id = $2 AND participant1_id IS NULL`
	case models.Slot2:
		query = `UPDATE matches SET participant2_id = $1 WHERE id = $2 AND participant2_id IS NULL`
	default:
		return false, models.ErrInvalidSlot
	}

	result, err := r.getExecutor(exec).ExecContext(ctx, query, participantID, matchID)
	if err != nil {
		return false, r.handleMatchError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rows == 1, nil
}

func (r *postgresMatchRepository) SaveResult(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE matches
		SET status = $1, participant1_score = $2, participant2_score = $3, forfeit = $4, forfeiting_slot = $5,
		    sets = $6, completed_at = $7, actual_duration_seconds = $8, winner_participant_id = $9
		WHERE id = $10`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		m.Status,
		m.Participant1Score,
		m.Participant2Score,
		m.Forfeit,
		m.ForfeitingSlot,
		m.Sets,
		m.CompletedAt,
		m.ActualDurationSeconds,
		m.WinnerParticipantID,
		m.ID,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// UpdateSchedule writes only the fields present in update.
func (r *postgresMatchRepository) UpdateSchedule(ctx context.Context, exec SQLExecutor, matchID int, update models.MatchScheduleUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	set := sq.Eq{}
	if update.ScheduledAt != nil {
		set["scheduled_at"] = *update.ScheduledAt
	}
	if update.Venue != nil {
		set["venue"] = *update.Venue
	}
	if update.Status != nil {
		set["status"] = *update.Status
	}

	query, args, err := psql.Update("matches").SetMap(set).Where(sq.Eq{"id": matchID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build schedule update for match %d: %w", matchID, err)
	}
	result, err := r.getExecutor(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return result.RowsAffected()
}

func (r *postgresMatchRepository) MaxRound(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var maxRound int
	err := sqlx.GetContext(ctx, r.getExecutor(exec), &maxRound,
		`SELECT COALESCE(MAX(round), 0) FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to get max round for tournament %d: %w", tournamentID, err)
	}
	return maxRound, nil
}

func (r *postgresMatchRepository) CountUnfinished(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.getExecutor(exec), &count,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND status NOT IN ($2, $3)`,
		tournamentID, models.MatchCompleted, models.MatchCancelled)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

// CountStarted counts played or running matches. Byes complete on their own and are ignored.
func (r *postgresMatchRepository) CountStarted(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.getExecutor(exec), &count,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND NOT is_bye AND status IN ($2, $3)`,
		tournamentID, models.MatchInProgress, models.MatchCompleted)
	if err != nil {
		return 0, fmt.Errorf("failed to count started matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	_, constraint, ok := constraintName(err)
	if !ok {
		return err
	}
	switch constraint {
	case "matches_tournament_id_fkey":
		return ErrMatchTournamentInvalid
	case "matches_participant1_id_fkey", "matches_participant2_id_fkey", "matches_winner_participant_id_fkey":
		return ErrMatchParticipantInvalid
	case "matches_distinct_participants_check":
		return ErrMatchDuplicateParticipants
	case "matches_winner_check":
		return ErrMatchWinnerInvalid
	case "matches_tournament_number_key":
		return ErrMatchNumberConflict
	}
	return err
}
