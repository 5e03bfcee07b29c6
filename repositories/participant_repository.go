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
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantConflict          = errors.New("participant conflict: user or team already registered for this tournament")
	ErrParticipantTournamentInvalid = errors.New("participant tournament conflict or invalid")
	ErrParticipantTypeViolation     = errors.New("participant type violation: either user_id or team_id must be set, but not both")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error
	FindByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error)
	// ListByTournament returns participants in registration order, which is the
	// order brackets are seeded in.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, statusFilter *models.ParticipantStatus) ([]*models.Participant, error)
	CountByStatus(ctx context.Context, exec SQLExecutor, tournamentID int, status models.ParticipantStatus) (int, error)
}

const participantColumns = `id, tournament_id, user_id, team_id, display_name, status, created_at`

type postgresParticipantRepository struct {
	db *sqlx.DB
}

func NewPostgresParticipantRepository(db *sqlx.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, user_id, team_id, display_name, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowxContext(ctx, query,
		p.TournamentID,
		p.UserID,
		p.TeamID,
		p.DisplayName,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		code, constraint, ok := constraintName(err)
		if ok {
			switch code {
			case pqUniqueViolation:
				if constraint == "participants_tournament_user_key" || constraint == "participants_tournament_team_key" {
					return ErrParticipantConflict
				}
			case pqForeignKeyViolation:
				if constraint == "participants_tournament_id_fkey" {
					return ErrParticipantTournamentInvalid
				}
			case pqCheckViolation:
				if constraint == "participants_entrant_check" {
					return ErrParticipantTypeViolation
				}
			}
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE participants SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update participant status: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) FindByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error) {
	var p models.Participant
	err := sqlx.GetContext(ctx, r.getExecutor(exec), &p, `SELECT `+participantColumns+` FROM participants WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return &p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, statusFilter *models.ParticipantStatus) ([]*models.Participant, error) {
	builder := psql.Select(participantColumns).
		From("participants").
		Where(sq.Eq{"tournament_id": tournamentID})
	if statusFilter != nil {
		builder = builder.Where(sq.Eq{"status": *statusFilter})
	}
	query, args, err := builder.OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build participant list query: %w", err)
	}

	participants := make([]*models.Participant, 0)
	if err := sqlx.SelectContext(ctx, r.getExecutor(exec), &participants, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) CountByStatus(ctx context.Context, exec SQLExecutor, tournamentID int, status models.ParticipantStatus) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.getExecutor(exec), &count,
		`SELECT COUNT(*) FROM participants WHERE tournament_id = $1 AND status = $2`, tournamentID, status)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}
