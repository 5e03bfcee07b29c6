package brackets

import (
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
)

const (
	DefaultMatchesPerDay = 4
	DefaultSlotInterval  = 2 * time.Hour
)

func (o ScheduleOptions) withDefaults() ScheduleOptions {
	if o.MatchesPerDay <= 0 {
		o.MatchesPerDay = DefaultMatchesPerDay
	}
	if o.SlotInterval <= 0 {
		o.SlotInterval = DefaultSlotInterval
	}
	return o
}

// assignSchedule spreads playable matches across the window in production order.
// The per-day throughput is raised when the window is too short to hold every
// match at the configured rate. Byes are never scheduled.
func assignSchedule(matches []*BracketMatch, window models.ScheduleWindow, opts ScheduleOptions) {
	if window.Start.IsZero() {
		return
	}
	opts = opts.withDefaults()

	playable := 0
	for _, m := range matches {
		if !m.IsBye {
			playable++
		}
	}
	perDay := opts.MatchesPerDay
	if need := ceilDiv(playable, window.Days()); need > perDay {
		perDay = need
	}

	slot := 0
	for _, m := range matches {
		if m.IsBye {
			continue
		}
		at := window.Start.AddDate(0, 0, slot/perDay).Add(time.Duration(slot%perDay) * opts.SlotInterval)
		m.ScheduledAt = &at
		slot++
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
