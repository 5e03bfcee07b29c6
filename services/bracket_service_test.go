package services

import (
	"context"
	"testing"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBracket_EightParticipants(t *testing.T) {
	env := newTestEnv(t)
	tour, participants := env.seedTournament(t, models.FormatSingleElimination, 8, 8)

	matches, err := env.brackets.GenerateBracket(context.Background(), tour.ID, GenerateBracketInput{})
	require.NoError(t, err)
	require.Len(t, matches, 7)

	perRound := map[int]int{}
	for _, m := range matches {
		perRound[m.Round]++
		assert.Equal(t, models.MatchScheduled, m.Status)
		assert.False(t, m.IsBye)
		if m.Round < 3 {
			require.NotNil(t, m.NextMatchID, "match %d", m.Number)
			require.NotNil(t, m.NextSlot)
		} else {
			assert.Nil(t, m.NextMatchID)
		}
	}
	assert.Equal(t, map[int]int{1: 4, 2: 2, 3: 1}, perRound)

	first := env.matchAt(t, tour.ID, 1, 1)
	assert.Equal(t, participants[0].ID, *first.Participant1ID)
	assert.Equal(t, participants[1].ID, *first.Participant2ID)
	assert.NotNil(t, first.ScheduledAt)

	final := env.matchAt(t, tour.ID, 3, 1)
	assert.Nil(t, final.Participant1ID)
	assert.Nil(t, final.Participant2ID)
	assert.Equal(t, "F1", final.Label)

	assert.Equal(t, models.StatusFull, env.tournament(t, tour.ID).Status)
	assert.Equal(t, []models.EventKind{models.EventBracketGenerated}, env.notifier.kinds())
}

func TestGenerateBracket_ByeAdvancesImmediately(t *testing.T) {
	env := newTestEnv(t)
	tour, participants := env.seedTournament(t, models.FormatSingleElimination, 8, 5)

	_, err := env.brackets.GenerateBracket(context.Background(), tour.ID, GenerateBracketInput{})
	require.NoError(t, err)

	bye := env.matchAt(t, tour.ID, 1, 3)
	assert.True(t, bye.IsBye)
	assert.Equal(t, models.MatchCompleted, bye.Status)
	require.NotNil(t, bye.WinnerParticipantID)
	assert.Equal(t, participants[4].ID, *bye.WinnerParticipantID)

	shell := env.matchAt(t, tour.ID, 2, 2)
	assert.True(t, shell.IsBye)
	assert.Equal(t, models.MatchCompleted, shell.Status)
	require.NotNil(t, shell.WinnerParticipantID)
	assert.Equal(t, participants[4].ID, *shell.WinnerParticipantID)

	final := env.matchAt(t, tour.ID, 3, 1)
	assert.Nil(t, final.Participant1ID)
	require.NotNil(t, final.Participant2ID)
	assert.Equal(t, participants[4].ID, *final.Participant2ID)
	assert.Equal(t, models.StatusOpen, env.tournament(t, tour.ID).Status)
}

func TestGenerateBracket_RoundRobin(t *testing.T) {
	env := newTestEnv(t)
	tour, _ := env.seedTournament(t, models.FormatRoundRobin, 4, 4)

	matches, err := env.brackets.GenerateBracket(context.Background(), tour.ID, GenerateBracketInput{})
	require.NoError(t, err)
	require.Len(t, matches, 6)

	pairs := map[[2]int]bool{}
	for _, m := range matches {
		require.True(t, m.HasBothParticipants())
		a, b := *m.Participant1ID, *m.Participant2ID
		if a > b {
			a, b = b, a
		}
		assert.False(t, pairs[[2]int{a, b}], "pair %d-%d scheduled twice", a, b)
		pairs[[2]int{a, b}] = true
		assert.Nil(t, m.NextMatchID)
	}
}

func TestGenerateBracket_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient participants", func(t *testing.T) {
		env := newTestEnv(t)
		tour, _ := env.seedTournament(t, models.FormatSingleElimination, 8, 1)
		_, err := env.brackets.GenerateBracket(ctx, tour.ID, GenerateBracketInput{})
		assert.ErrorIs(t, err, ErrInsufficientParticipants)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.brackets.GenerateBracket(ctx, 999, GenerateBracketInput{})
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})

	t.Run("more approved than capacity", func(t *testing.T) {
		env := newTestEnv(t)
		tour, _ := env.seedTournament(t, models.FormatSingleElimination, 4, 5)
		_, err := env.brackets.GenerateBracket(ctx, tour.ID, GenerateBracketInput{})
		assert.ErrorIs(t, err, ErrCapacityExceeded)

		matches, err := env.matches.ListByTournament(ctx, nil, tour.ID, matchFilterAll)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestGenerateBracket_RegenerationNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tour, _ := env.seedTournament(t, models.FormatSingleElimination, 4, 4)

	_, err := env.brackets.GenerateBracket(ctx, tour.ID, GenerateBracketInput{})
	require.NoError(t, err)

	// ещё ничего не сыграно: перегенерация без подтверждения
	_, err = env.brackets.GenerateBracket(ctx, tour.ID, GenerateBracketInput{})
	require.NoError(t, err)

	first := env.matchAt(t, tour.ID, 1, 1)
	_, err = env.matchService.RecordResult(ctx, first.ID, win(2, 0))
	require.NoError(t, err)

	_, err = env.brackets.GenerateBracket(ctx, tour.ID, GenerateBracketInput{})
	assert.ErrorIs(t, err, ErrRegenerationNotConfirmed)

	matches, err := env.brackets.GenerateBracket(ctx, tour.ID, GenerateBracketInput{Confirm: true})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for _, m := range matches {
		assert.Equal(t, models.MatchScheduled, m.Status)
		assert.Nil(t, m.WinnerParticipantID)
	}
	assert.Equal(t, models.StatusFull, env.tournament(t, tour.ID).Status)
}

func TestGetBracket(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tour, participants := env.seedTournament(t, models.FormatRoundRobin, 3, 3)
	_, err := env.brackets.GenerateBracket(ctx, tour.ID, GenerateBracketInput{})
	require.NoError(t, err)

	view, err := env.brackets.GetBracket(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, tour.ID, view.Tournament.ID)
	assert.Len(t, view.Participants, len(participants))
	assert.Len(t, view.Matches, 3)
	require.Len(t, view.Standings, 3)
	for _, s := range view.Standings {
		assert.Zero(t, s.GamesPlayed)
	}

	_, err = env.brackets.GetBracket(ctx, 12345)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}
