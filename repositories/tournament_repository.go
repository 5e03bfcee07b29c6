package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/jmoiron/sqlx"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this organizer")
	ErrTournamentOverCapacity = errors.New("tournament occupancy would exceed capacity")
	ErrTournamentInvalidData  = errors.New("tournament data violates a constraint")
)

type ListTournamentsFilter struct {
	OrganizerID *int
	Status      *models.TournamentStatus
	Format      *models.BracketFormat
	Sport       *string
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetForUpdate locks the tournament row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateOccupancy(ctx context.Context, exec SQLExecutor, id int, current int, status models.TournamentStatus) error
	UpdateOverallWinner(ctx context.Context, exec SQLExecutor, id int, winnerParticipantID *int) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	ListDueToStart(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Tournament, error)
}

const tournamentColumns = `id, name, sport, format, max_participants, current_participants, status,
	start_date, end_date, organizer_id, round_robin_legs, winner_participant_id, created_at`

type postgresTournamentRepository struct {
	db *sqlx.DB
}

func NewPostgresTournamentRepository(db *sqlx.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, sport, format, max_participants, current_participants, status,
			start_date, end_date, organizer_id, round_robin_legs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowxContext(ctx, query,
		t.Name, t.Sport, t.Format, t.MaxParticipants, t.CurrentParticipants, t.Status,
		t.StartDate, t.EndDate, t.OrganizerID, t.RoundRobinLegs,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, exec, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
}

func (r *postgresTournamentRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, exec, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresTournamentRepository) get(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Tournament, error) {
	var t models.Tournament
	if err := sqlx.GetContext(ctx, r.getExecutor(exec), &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return &t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	builder := psql.Select(tournamentColumns).From("tournaments")
	if filter.OrganizerID != nil {
		builder = builder.Where(sq.Eq{"organizer_id": *filter.OrganizerID})
	}
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filter.Status})
	}
	if filter.Format != nil {
		builder = builder.Where(sq.Eq{"format": *filter.Format})
	}
	if filter.Sport != nil {
		builder = builder.Where(sq.Eq{"sport": *filter.Sport})
	}
	builder = builder.OrderBy("start_date DESC", "id DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build tournament list query: %w", err)
	}

	tournaments := make([]*models.Tournament, 0)
	if err := sqlx.SelectContext(ctx, r.db, &tournaments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateOccupancy(ctx context.Context, exec SQLExecutor, id int, current int, status models.TournamentStatus) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE tournaments SET current_participants = $1, status = $2 WHERE id = $3`, current, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateOverallWinner(ctx context.Context, exec SQLExecutor, id int, winnerParticipantID *int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE tournaments SET winner_participant_id = $1 WHERE id = $2`, winnerParticipantID, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// ListDueToStart returns open or full tournaments whose start date has passed
// and which already have a generated match set.
func (r *postgresTournamentRepository) ListDueToStart(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments t
		WHERE t.status IN ($1, $2)
		  AND t.start_date <= $3
		  AND EXISTS (SELECT 1 FROM matches m WHERE m.tournament_id = t.id)
		ORDER BY t.start_date ASC`

	tournaments := make([]*models.Tournament, 0)
	err := sqlx.SelectContext(ctx, r.getExecutor(exec), &tournaments, query, models.StatusOpen, models.StatusFull, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments due to start: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	code, constraint, ok := constraintName(err)
	if !ok {
		return err
	}
	switch {
	case constraint == "tournaments_organizer_name_key":
		return ErrTournamentNameConflict
	case constraint == "tournaments_occupancy_check":
		return ErrTournamentOverCapacity
	case code == pqCheckViolation, code == pqForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrTournamentInvalidData, constraint)
	}
	return err
}
