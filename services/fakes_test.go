package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/brackets"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the database. Transactions snapshot the
// whole store and restore it on error.
type memStore struct {
	mu           sync.Mutex
	tournaments  map[int]*models.Tournament
	participants map[int]*models.Participant
	matches      map[int]*models.Match
	standings    map[int][]models.TournamentStanding
	nextID       int
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:  map[int]*models.Tournament{},
		participants: map[int]*models.Participant{},
		matches:      map[int]*models.Match{},
		standings:    map[int][]models.TournamentStanding{},
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func cloneTournament(t *models.Tournament) *models.Tournament {
	c := *t
	if t.WinnerParticipantID != nil {
		c.WinnerParticipantID = intPtr(*t.WinnerParticipantID)
	}
	return &c
}

func cloneParticipant(p *models.Participant) *models.Participant {
	c := *p
	return &c
}

type memSnapshot struct {
	tournaments  map[int]*models.Tournament
	participants map[int]*models.Participant
	matches      map[int]*models.Match
	standings    map[int][]models.TournamentStanding
	nextID       int
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		tournaments:  map[int]*models.Tournament{},
		participants: map[int]*models.Participant{},
		matches:      map[int]*models.Match{},
		standings:    map[int][]models.TournamentStanding{},
		nextID:       s.nextID,
	}
	for k, v := range s.tournaments {
		snap.tournaments[k] = cloneTournament(v)
	}
	for k, v := range s.participants {
		snap.participants[k] = cloneParticipant(v)
	}
	for k, v := range s.matches {
		snap.matches[k] = v.Clone()
	}
	for k, v := range s.standings {
		snap.standings[k] = append([]models.TournamentStanding(nil), v...)
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments = snap.tournaments
	s.participants = snap.participants
	s.matches = snap.matches
	s.standings = snap.standings
	s.nextID = snap.nextID
}

// memTransactor rolls back on error and, like a real commit, on a context that
// ended while the transaction ran. stall simulates slow storage before commit.
type memTransactor struct {
	store *memStore
	stall time.Duration
}

func (tx *memTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, exec repositories.SQLExecutor) error) error {
	snap := tx.store.snapshot()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx, nil); err != nil {
		tx.store.restore(snap)
		return err
	}
	if tx.stall > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(tx.stall):
		}
	}
	if err := ctx.Err(); err != nil {
		tx.store.restore(snap)
		return err
	}
	return nil
}

// --- tournaments ---

type memTournamentRepo struct{ s *memStore }

func (r *memTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tournaments {
		if existing.OrganizerID == t.OrganizerID && existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	t.ID = r.s.id()
	t.CreatedAt = time.Now().UTC()
	r.s.tournaments[t.ID] = cloneTournament(t)
	return nil
}

func (r *memTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (r *memTournamentRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Tournament{}
	for _, t := range r.s.tournaments {
		if filter.OrganizerID != nil && t.OrganizerID != *filter.OrganizerID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Format != nil && t.Format != *filter.Format {
			continue
		}
		out = append(out, cloneTournament(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTournamentRepo) update(id int, fn func(t *models.Tournament) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	return fn(t)
}

func (r *memTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	return r.update(id, func(t *models.Tournament) error {
		t.Status = status
		return nil
	})
}

func (r *memTournamentRepo) UpdateOccupancy(_ context.Context, _ repositories.SQLExecutor, id int, current int, status models.TournamentStatus) error {
	return r.update(id, func(t *models.Tournament) error {
		if current > t.MaxParticipants {
			return repositories.ErrTournamentOverCapacity
		}
		t.CurrentParticipants = current
		t.Status = status
		return nil
	})
}

func (r *memTournamentRepo) UpdateOverallWinner(_ context.Context, _ repositories.SQLExecutor, id int, winner *int) error {
	return r.update(id, func(t *models.Tournament) error {
		t.WinnerParticipantID = nil
		if winner != nil {
			t.WinnerParticipantID = intPtr(*winner)
		}
		return nil
	})
}

func (r *memTournamentRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.s.tournaments, id)
	for pid, p := range r.s.participants {
		if p.TournamentID == id {
			delete(r.s.participants, pid)
		}
	}
	for mid, m := range r.s.matches {
		if m.TournamentID == id {
			delete(r.s.matches, mid)
		}
	}
	delete(r.s.standings, id)
	return nil
}

func (r *memTournamentRepo) ListDueToStart(_ context.Context, _ repositories.SQLExecutor, now time.Time) ([]*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Tournament{}
	for _, t := range r.s.tournaments {
		if t.Status != models.StatusOpen && t.Status != models.StatusFull {
			continue
		}
		if t.StartDate.After(now) {
			continue
		}
		hasMatches := false
		for _, m := range r.s.matches {
			if m.TournamentID == t.ID {
				hasMatches = true
				break
			}
		}
		if hasMatches {
			out = append(out, cloneTournament(t))
		}
	}
	return out, nil
}

// --- participants ---

type memParticipantRepo struct{ s *memStore }

func (r *memParticipantRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[p.TournamentID]; !ok {
		return repositories.ErrParticipantTournamentInvalid
	}
	for _, existing := range r.s.participants {
		if existing.TournamentID != p.TournamentID {
			continue
		}
		if (p.UserID != nil && existing.UserID != nil && *p.UserID == *existing.UserID) ||
			(p.TeamID != nil && existing.TeamID != nil && *p.TeamID == *existing.TeamID) {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.s.id()
	p.CreatedAt = time.Now().UTC()
	r.s.participants[p.ID] = cloneParticipant(p)
	return nil
}

func (r *memParticipantRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.ParticipantStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Status = status
	return nil
}

func (r *memParticipantRepo) FindByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	return cloneParticipant(p), nil
}

func (r *memParticipantRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Participant{}
	for _, p := range r.s.participants {
		if p.TournamentID != tournamentID || (status != nil && p.Status != *status) {
			continue
		}
		out = append(out, cloneParticipant(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memParticipantRepo) CountByStatus(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, status models.ParticipantStatus) (int, error) {
	list, err := r.ListByTournament(ctx, exec, tournamentID, &status)
	return len(list), err
}

// --- matches ---

type memMatchRepo struct{ s *memStore }

func (r *memMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	if m.HasDuplicateParticipants() {
		return repositories.ErrMatchDuplicateParticipants
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = r.s.id()
	m.CreatedAt = time.Now().UTC()
	r.s.matches[m.ID] = m.Clone()
	return nil
}

func (r *memMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (r *memMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Match{}
	for _, m := range r.s.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if filter.Round != nil && m.Round != *filter.Round {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memMatchRepo) update(id int, fn func(m *models.Match) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	return fn(m)
}

func (r *memMatchRepo) UpdateLinks(_ context.Context, _ repositories.SQLExecutor, id int, next, slot, src1, src2 *int) error {
	return r.update(id, func(m *models.Match) error {
		c := (&models.Match{NextMatchID: next, NextSlot: slot, SourceMatch1ID: src1, SourceMatch2ID: src2}).Clone()
		m.NextMatchID, m.NextSlot, m.SourceMatch1ID, m.SourceMatch2ID = c.NextMatchID, c.NextSlot, c.SourceMatch1ID, c.SourceMatch2ID
		return nil
	})
}

func (r *memMatchRepo) FillSlot(_ context.Context, _ repositories.SQLExecutor, id int, slot int, participantID int) (bool, error) {
	filled := false
	err := r.update(id, func(m *models.Match) error {
		target := &m.Participant1ID
		other := m.Participant2ID
		if slot == models.Slot2 {
			target = &m.Participant2ID
			other = m.Participant1ID
		}
		if *target != nil {
			return nil
		}
		if other != nil && *other == participantID {
			return repositories.ErrMatchDuplicateParticipants
		}
		*target = intPtr(participantID)
		filled = true
		return nil
	})
	return filled, err
}

func (r *memMatchRepo) SaveResult(_ context.Context, _ repositories.SQLExecutor, in *models.Match) error {
	return r.update(in.ID, func(m *models.Match) error {
		c := in.Clone()
		m.Status = c.Status
		m.Participant1Score = c.Participant1Score
		m.Participant2Score = c.Participant2Score
		m.Forfeit = c.Forfeit
		m.ForfeitingSlot = c.ForfeitingSlot
		m.Sets = c.Sets
		m.CompletedAt = c.CompletedAt
		m.ActualDurationSeconds = c.ActualDurationSeconds
		m.WinnerParticipantID = c.WinnerParticipantID
		return nil
	})
}

func (r *memMatchRepo) UpdateSchedule(_ context.Context, _ repositories.SQLExecutor, id int, u models.MatchScheduleUpdate) error {
	return r.update(id, func(m *models.Match) error {
		if u.ScheduledAt != nil {
			m.ScheduledAt = timePtr(*u.ScheduledAt)
		}
		if u.Venue != nil {
			v := *u.Venue
			m.Venue = &v
		}
		if u.Status != nil {
			m.Status = *u.Status
		}
		return nil
	})
}

func (r *memMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, m := range r.s.matches {
		if m.TournamentID == tournamentID {
			delete(r.s.matches, id)
			n++
		}
	}
	return n, nil
}

func (r *memMatchRepo) count(tournamentID int, pred func(m *models.Match) bool) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.matches {
		if m.TournamentID == tournamentID && pred(m) {
			n++
		}
	}
	return n
}

func (r *memMatchRepo) MaxRound(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	maxRound := 0
	for _, m := range r.s.matches {
		if m.TournamentID == tournamentID && m.Round > maxRound {
			maxRound = m.Round
		}
	}
	return maxRound, nil
}

func (r *memMatchRepo) CountUnfinished(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	return r.count(tournamentID, func(m *models.Match) bool {
		return m.Status != models.MatchCompleted && m.Status != models.MatchCancelled
	}), nil
}

func (r *memMatchRepo) CountStarted(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	return r.count(tournamentID, func(m *models.Match) bool {
		return !m.IsBye && (m.Status == models.MatchInProgress || m.Status == models.MatchCompleted)
	}), nil
}

// --- standings ---

type memStandingRepo struct{ s *memStore }

func (r *memStandingRepo) ReplaceForTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, standings []models.TournamentStanding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.standings[tournamentID] = append([]models.TournamentStanding(nil), standings...)
	return nil
}

func (r *memStandingRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.TournamentStanding, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]models.TournamentStanding{}, r.s.standings[tournamentID]...), nil
}

func (r *memStandingRepo) DeleteByTournamentID(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.standings, tournamentID)
	return nil
}

// --- observers ---

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) kinds() []models.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.EventKind, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}

type recordingReporter struct {
	mu     sync.Mutex
	errors []error
}

func (r *recordingReporter) ReportProgressionFailure(_ context.Context, _ *models.Match, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

type recordingArchiver struct {
	mu        sync.Mutex
	snapshots []*BracketSnapshot
}

func (a *recordingArchiver) Archive(_ context.Context, snapshot *BracketSnapshot) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshots = append(a.snapshots, snapshot)
	return fmt.Sprintf("mem://brackets/%d", snapshot.Tournament.ID), nil
}

// --- environment ---

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store        *memStore
	tx           *memTransactor
	tournaments  *memTournamentRepo
	participants *memParticipantRepo
	matches      *memMatchRepo
	standingsDB  *memStandingRepo
	notifier     *recordingNotifier
	reporter     *recordingReporter
	archiver     *recordingArchiver

	brackets          BracketService
	matchService      MatchService
	participantSvc    ParticipantService
	tournamentService TournamentService
	standingsService  StandingsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithTimeout(t, 5*time.Second)
}

// newTestEnvWithTimeout builds services whose operations run under timeout.
func newTestEnvWithTimeout(t *testing.T, timeout time.Duration) *testEnv {
	t.Helper()
	store := newMemStore()
	env := &testEnv{
		store:        store,
		tournaments:  &memTournamentRepo{s: store},
		participants: &memParticipantRepo{s: store},
		matches:      &memMatchRepo{s: store},
		standingsDB:  &memStandingRepo{s: store},
		notifier:     &recordingNotifier{},
		reporter:     &recordingReporter{},
		archiver:     &recordingArchiver{},
	}
	opts := ServiceOptions{
		Schedule: brackets.ScheduleOptions{MatchesPerDay: 4, SlotInterval: 2 * time.Hour},
		Timeout:  timeout,
		Now:      func() time.Time { return testNow },
		Notifier: env.notifier,
		Reporter: env.reporter,
		Archiver: env.archiver,
		Locks:    NewTournamentLocks(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	tx := &memTransactor{store: store}
	env.tx = tx
	env.brackets = NewBracketService(tx, env.tournaments, env.participants, env.matches, env.standingsDB, opts)
	env.matchService = NewMatchService(tx, env.tournaments, env.participants, env.matches, env.standingsDB, opts)
	env.participantSvc = NewParticipantService(tx, env.tournaments, env.participants, opts)
	env.tournamentService = NewTournamentService(tx, env.tournaments, env.participants, env.matches, env.standingsDB, opts)
	env.standingsService = NewStandingsService(env.tournaments, env.participants, env.matches, env.standingsDB)
	return env
}

// seedTournament creates an open tournament with n approved participants.
func (e *testEnv) seedTournament(t *testing.T, format models.BracketFormat, capacity, n int) (*models.Tournament, []*models.Participant) {
	t.Helper()
	ctx := context.Background()
	tour := &models.Tournament{
		Name:            fmt.Sprintf("Cup %d", len(e.store.tournaments)+1),
		Sport:           "tennis",
		Format:          format,
		MaxParticipants: capacity,
		Status:          models.StatusOpen,
		StartDate:       testNow.Add(24 * time.Hour),
		EndDate:         testNow.Add(72 * time.Hour),
		OrganizerID:     1,
		RoundRobinLegs:  1,
	}
	require.NoError(t, e.tournaments.Create(ctx, nil, tour))

	participants := make([]*models.Participant, 0, n)
	for i := 1; i <= n; i++ {
		p := &models.Participant{
			TournamentID: tour.ID,
			UserID:       intPtr(100 + i),
			DisplayName:  fmt.Sprintf("P%d", i),
			Status:       models.ParticipantApproved,
		}
		require.NoError(t, e.participants.Create(ctx, nil, p))
		participants = append(participants, p)
	}
	status := models.StatusOpen
	if n >= capacity {
		status = models.StatusFull
	}
	if n <= capacity {
		require.NoError(t, e.tournaments.UpdateOccupancy(ctx, nil, tour.ID, n, status))
	}
	tour, err := e.tournaments.GetByID(ctx, nil, tour.ID)
	require.NoError(t, err)
	return tour, participants
}

// matchAt returns the stored match at round/position.
func (e *testEnv) matchAt(t *testing.T, tournamentID, round, position int) *models.Match {
	t.Helper()
	matches, err := e.matches.ListByTournament(context.Background(), nil, tournamentID, repositories.MatchFilter{})
	require.NoError(t, err)
	for _, m := range matches {
		if m.Round == round && m.Position == position {
			return m
		}
	}
	t.Fatalf("no match at round %d position %d", round, position)
	return nil
}

func (e *testEnv) tournament(t *testing.T, id int) *models.Tournament {
	t.Helper()
	tour, err := e.tournaments.GetByID(context.Background(), nil, id)
	require.NoError(t, err)
	return tour
}

func win(p1, p2 int) RecordResultInput {
	return RecordResultInput{Participant1Score: p1, Participant2Score: p2}
}

var matchFilterAll = repositories.MatchFilter{}
