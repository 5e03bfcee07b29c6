package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket creates one match per unordered pair of participants.
// With two legs the reverse fixtures are appended after the first leg.
// Every fixture carries round 1.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	tournament := params.Tournament
	if tournament == nil {
		return nil, errors.New("RoundRobinGenerator: tournament is required")
	}
	participants := params.Participants
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}

	settings := models.RoundRobinSettings{Legs: tournament.RoundRobinLegs}.Normalize()
	n := len(participants)
	matches := make([]*BracketMatch, 0, n*(n-1)/2*settings.Legs)
	number := 0

	for leg := 1; leg <= settings.Legs; leg++ {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for j := i + 1; j < n; j++ {
				home, away := participants[i].ID, participants[j].ID
				if leg == 2 {
					home, away = away, home
				}
				number++
				matches = append(matches, &BracketMatch{
					UID:            fmt.Sprintf("L%d_P%dvP%d", leg, home, away),
					Number:         number,
					Round:          1,
					OrderInRound:   number,
					Label:          fmt.Sprintf("RR%d", number),
					Participant1ID: intPtr(home),
					Participant2ID: intPtr(away),
				})
			}
		}
	}

	if err := checkPairs(matches); err != nil {
		return nil, err
	}
	assignSchedule(matches, tournament.ScheduleWindow(), params.Schedule)
	return matches, nil
}
