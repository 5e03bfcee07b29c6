package services

import (
	"context"
	"testing"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantService_OccupancyFollowsApprovals(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tour, _ := env.seedTournament(t, models.FormatSingleElimination, 2, 0)

	a, err := env.participantSvc.Register(ctx, tour.ID, RegisterParticipantInput{UserID: intPtr(1), DisplayName: " Alice "})
	require.NoError(t, err)
	assert.Equal(t, "Alice", a.DisplayName)
	assert.Equal(t, models.ParticipantPending, a.Status)

	b, err := env.participantSvc.Register(ctx, tour.ID, RegisterParticipantInput{TeamID: intPtr(7)})
	require.NoError(t, err)
	assert.Equal(t, "Team 7", b.DisplayName)

	c, err := env.participantSvc.Register(ctx, tour.ID, RegisterParticipantInput{UserID: intPtr(3)})
	require.NoError(t, err)

	_, err = env.participantSvc.ChangeStatus(ctx, a.ID, models.ParticipantApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, env.tournament(t, tour.ID).Status)

	_, err = env.participantSvc.ChangeStatus(ctx, b.ID, models.ParticipantApproved)
	require.NoError(t, err)
	full := env.tournament(t, tour.ID)
	assert.Equal(t, models.StatusFull, full.Status)
	assert.Equal(t, 2, full.CurrentParticipants)

	_, err = env.participantSvc.ChangeStatus(ctx, c.ID, models.ParticipantApproved)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = env.participantSvc.Register(ctx, tour.ID, RegisterParticipantInput{UserID: intPtr(4)})
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = env.participantSvc.ChangeStatus(ctx, b.ID, models.ParticipantWithdrawn)
	require.NoError(t, err)
	open := env.tournament(t, tour.ID)
	assert.Equal(t, models.StatusOpen, open.Status)
	assert.Equal(t, 1, open.CurrentParticipants)

	approved := models.ParticipantApproved
	list, err := env.participantSvc.ListParticipants(ctx, tour.ID, &approved)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestParticipantService_RegistrationErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tour, _ := env.seedTournament(t, models.FormatRoundRobin, 4, 0)

	_, err := env.participantSvc.Register(ctx, tour.ID, RegisterParticipantInput{})
	assert.ErrorIs(t, err, ErrEntrantRequired)

	_, err = env.participantSvc.Register(ctx, tour.ID, RegisterParticipantInput{UserID: intPtr(1), TeamID: intPtr(2)})
	assert.ErrorIs(t, err, ErrEntrantRequired)

	_, err = env.participantSvc.Register(ctx, tour.ID, RegisterParticipantInput{UserID: intPtr(1)})
	require.NoError(t, err)
	_, err = env.participantSvc.Register(ctx, tour.ID, RegisterParticipantInput{UserID: intPtr(1)})
	assert.ErrorIs(t, err, ErrRegistrationConflict)

	_, err = env.participantSvc.Register(ctx, 999, RegisterParticipantInput{UserID: intPtr(1)})
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	_, err = env.participantSvc.ChangeStatus(ctx, 999, models.ParticipantApproved)
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	_, err = env.participantSvc.ChangeStatus(ctx, 1, "maybe")
	assert.ErrorIs(t, err, ErrInvalidParticipantStatus)

	require.NoError(t, env.tournaments.UpdateStatus(ctx, nil, tour.ID, models.StatusInProgress))
	_, err = env.participantSvc.Register(ctx, tour.ID, RegisterParticipantInput{UserID: intPtr(5)})
	assert.ErrorIs(t, err, ErrRegistrationNotOpen)
}

func TestParticipantService_DraftKeepsStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tour, _ := env.seedTournament(t, models.FormatRoundRobin, 2, 0)
	require.NoError(t, env.tournaments.UpdateStatus(ctx, nil, tour.ID, models.StatusDraft))

	for _, user := range []int{1, 2} {
		p, err := env.participantSvc.Register(ctx, tour.ID, RegisterParticipantInput{UserID: intPtr(user)})
		require.NoError(t, err)
		_, err = env.participantSvc.ChangeStatus(ctx, p.ID, models.ParticipantApproved)
		require.NoError(t, err)
	}
	draft := env.tournament(t, tour.ID)
	assert.Equal(t, models.StatusDraft, draft.Status)
	assert.Equal(t, 2, draft.CurrentParticipants)

	opened, err := env.tournamentService.UpdateTournamentStatus(ctx, tour.ID, models.StatusOpen)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFull, opened.Status)
}
