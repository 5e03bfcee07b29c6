package brackets

import (
	"context"
	"errors"
	"fmt"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// RoundsFor returns ceil(log2(n)), the number of rounds needed for n entrants.
func RoundsFor(n int) int {
	rounds := 0
	for count := n; count > 1; count = (count + 1) / 2 {
		rounds++
	}
	return rounds
}

// GenerateBracket pairs participants in input order into round 1 and builds
// placeholder shells for every later round.
//
// Match i of a round feeds match ceil(i/2) of the next round: odd positions
// into slot 1, even positions into slot 2. When a round has an odd number of
// matches the last one has no partner, so its downstream shell is a bye shell
// with a single feeder. In round 1 an odd participant out gets a bye match.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	if params.Tournament == nil {
		return nil, errors.New("SingleEliminationGenerator: tournament is required")
	}
	participants := params.Participants
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}

	totalRounds := RoundsFor(len(participants))
	all := make([]*BracketMatch, 0, len(participants))
	number := 0

	// Первый раунд: пары по порядку, нечётный участник получает bye
	previous := make([]*BracketMatch, 0, (len(participants)+1)/2)
	for i := 0; i < len(participants); i += 2 {
		number++
		position := i/2 + 1
		m := &BracketMatch{
			UID:            eliminationUID(1, position),
			Number:         number,
			Round:          1,
			OrderInRound:   position,
			Label:          eliminationLabel(1, position, totalRounds),
			Participant1ID: intPtr(participants[i].ID),
		}
		if i+1 < len(participants) {
			m.Participant2ID = intPtr(participants[i+1].ID)
		} else {
			m.IsBye = true
		}
		previous = append(previous, m)
		all = append(all, m)
	}

	for round := 2; round <= totalRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := make([]*BracketMatch, 0, (len(previous)+1)/2)
		for i := 0; i < len(previous); i += 2 {
			number++
			position := i/2 + 1
			m := &BracketMatch{
				UID:          eliminationUID(round, position),
				Number:       number,
				Round:        round,
				OrderInRound: position,
				Label:        eliminationLabel(round, position, totalRounds),
			}
			linkForward(previous[i], m, 1)
			if i+1 < len(previous) {
				linkForward(previous[i+1], m, 2)
			} else {
				m.IsBye = true
			}
			current = append(current, m)
			all = append(all, m)
		}
		previous = current
	}

	if err := checkPairs(all); err != nil {
		return nil, err
	}
	assignSchedule(all, params.Tournament.ScheduleWindow(), params.Schedule)
	return all, nil
}

func linkForward(from, to *BracketMatch, slot int) {
	from.NextMatchUID = strPtr(to.UID)
	from.NextSlot = intPtr(slot)
	if slot == 1 {
		to.SourceMatch1UID = strPtr(from.UID)
	} else {
		to.SourceMatch2UID = strPtr(from.UID)
	}
}

func eliminationUID(round, position int) string {
	return fmt.Sprintf("R%dM%d", round, position)
}

func eliminationLabel(round, position, totalRounds int) string {
	switch totalRounds - round {
	case 0:
		return fmt.Sprintf("F%d", position)
	case 1:
		return fmt.Sprintf("SF%d", position)
	case 2:
		return fmt.Sprintf("QF%d", position)
	default:
		return fmt.Sprintf("R%dM%d", round, position)
	}
}
