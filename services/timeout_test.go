package services

import (
	"context"
	"testing"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shortTimeout = 50 * time.Millisecond

func TestGenerateBracket_TimeoutRollsBack(t *testing.T) {
	ctx := context.Background()
	env := newTestEnvWithTimeout(t, shortTimeout)
	tour, _ := env.seedTournament(t, models.FormatSingleElimination, 4, 4)
	env.tx.stall = time.Second

	_, err := env.brackets.GenerateBracket(ctx, tour.ID, GenerateBracketInput{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "not applied")

	matches, err := env.matches.ListByTournament(ctx, nil, tour.ID, matchFilterAll)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, models.StatusFull, env.tournament(t, tour.ID).Status)
	assert.Empty(t, env.notifier.kinds())
}

func TestRecordResult_TimeoutRollsBack(t *testing.T) {
	ctx := context.Background()
	env := newTestEnvWithTimeout(t, shortTimeout)
	tour, _ := env.seedTournament(t, models.FormatSingleElimination, 4, 4)
	_, err := env.brackets.GenerateBracket(ctx, tour.ID, GenerateBracketInput{})
	require.NoError(t, err)

	env.tx.stall = time.Second
	first := env.matchAt(t, tour.ID, 1, 1)
	_, err = env.matchService.RecordResult(ctx, first.ID, win(3, 1))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// ничего не записано
	after := env.matchAt(t, tour.ID, 1, 1)
	assert.Equal(t, models.MatchScheduled, after.Status)
	assert.Nil(t, after.WinnerParticipantID)
	assert.Nil(t, after.Participant1Score)
	final := env.matchAt(t, tour.ID, 2, 1)
	assert.Nil(t, final.Participant1ID)
	assert.Equal(t, models.StatusFull, env.tournament(t, tour.ID).Status)
	assert.Equal(t, []models.EventKind{models.EventBracketGenerated}, env.notifier.kinds())

	env.tx.stall = 0
	_, err = env.matchService.RecordResult(ctx, first.ID, win(3, 1))
	require.NoError(t, err)
}

func TestRecordResult_TimeoutOnFinalFixtureKeepsTournamentOpen(t *testing.T) {
	ctx := context.Background()
	env := newTestEnvWithTimeout(t, shortTimeout)
	tour, _ := env.seedTournament(t, models.FormatRoundRobin, 3, 3)
	matches, err := env.brackets.GenerateBracket(ctx, tour.ID, GenerateBracketInput{})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	for _, m := range matches[:2] {
		_, err := env.matchService.RecordResult(ctx, m.ID, win(2, 1))
		require.NoError(t, err)
	}

	env.tx.stall = time.Second
	_, err = env.matchService.RecordResult(ctx, matches[2].ID, win(2, 1))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, models.StatusInProgress, env.tournament(t, tour.ID).Status)
	stored, err := env.standingsDB.ListByTournament(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, env.archiver.snapshots)

	last, err := env.matches.GetByID(ctx, nil, matches[2].ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchScheduled, last.Status)
}
