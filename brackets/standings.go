package brackets

import (
	"sort"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
)

const (
	PointsForWin  = 3
	PointsForDraw = 1
	PointsForLoss = 0
)

// CalculateStandings ranks participants from completed, non-bye matches.
// It reads nothing but its arguments, so equal inputs always give equal output.
// Residual ties keep the order of participants as given.
func CalculateStandings(format models.BracketFormat, participants []*models.Participant, matches []*models.Match) []models.TournamentStanding {
	if len(participants) == 0 {
		return []models.TournamentStanding{}
	}

	table := make([]models.TournamentStanding, len(participants))
	index := make(map[int]int, len(participants))
	for i, p := range participants {
		table[i] = models.TournamentStanding{
			TournamentID:  p.TournamentID,
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
		}
		index[p.ID] = i
	}

	for _, m := range matches {
		if !m.IsCounted() {
			continue
		}
		i1, ok1 := index[*m.Participant1ID]
		i2, ok2 := index[*m.Participant2ID]
		if !ok1 || !ok2 {
			continue
		}
		s1, s2 := *m.Participant1Score, *m.Participant2Score
		record(&table[i1], s1, s2)
		record(&table[i2], s2, s1)

		switch {
		case m.WinnerParticipantID != nil && *m.WinnerParticipantID == *m.Participant1ID:
			win(&table[i1])
			lose(&table[i2])
		case m.WinnerParticipantID != nil && *m.WinnerParticipantID == *m.Participant2ID:
			win(&table[i2])
			lose(&table[i1])
		default:
			table[i1].Draws++
			table[i1].Points += PointsForDraw
			table[i2].Draws++
			table[i2].Points += PointsForDraw
		}
	}

	if format.IsElimination() {
		for i := range table {
			table[i].Eliminated = table[i].Losses > 0
		}
		sort.SliceStable(table, func(i, j int) bool {
			if table[i].Wins != table[j].Wins {
				return table[i].Wins > table[j].Wins
			}
			return table[i].GamesPlayed > table[j].GamesPlayed
		})
	} else {
		sort.SliceStable(table, func(i, j int) bool {
			if table[i].Points != table[j].Points {
				return table[i].Points > table[j].Points
			}
			if table[i].ScoreDifference != table[j].ScoreDifference {
				return table[i].ScoreDifference > table[j].ScoreDifference
			}
			return table[i].ScoreFor > table[j].ScoreFor
		})
	}

	for i := range table {
		table[i].Rank = i + 1
	}
	return table
}

func record(s *models.TournamentStanding, scored, conceded int) {
	s.GamesPlayed++
	s.ScoreFor += scored
	s.ScoreAgainst += conceded
	s.ScoreDifference = s.ScoreFor - s.ScoreAgainst
}

func win(s *models.TournamentStanding) {
	s.Wins++
	s.Points += PointsForWin
}

func lose(s *models.TournamentStanding) {
	s.Losses++
	s.Points += PointsForLoss
}
