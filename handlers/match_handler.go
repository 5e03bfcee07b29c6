package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
	"github.com/aanujkhurana/AAA-SportsTournament/services"
)

type MatchHandler struct {
	matchService      services.MatchService
	tournamentService services.TournamentService
}

func NewMatchHandler(ms services.MatchService, ts services.TournamentService) *MatchHandler {
	return &MatchHandler{
		matchService:      ms,
		tournamentService: ts,
	}
}

// ListHandler обрабатывает GET /tournaments/{tournamentID}/matches?round=&status=
func (h *MatchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var filter repositories.MatchFilter
	if filter.Round, err = queryInt(r, "round"); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := models.MatchStatus(s)
		if !status.IsValid() {
			mapServiceErrorToHTTP(w, r, services.ErrInvalidMatchStatus)
			return
		}
		filter.Status = &status
	}

	matches, err := h.matchService.ListMatches(r.Context(), tournamentID, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if matches == nil {
		matches = []*models.Match{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler обрабатывает GET /matches/{matchID}
func (h *MatchHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// authorizeMatch resolves the match and checks the caller organizes its tournament.
func (h *MatchHandler) authorizeMatch(w http.ResponseWriter, r *http.Request) (int, bool) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, false
	}
	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return 0, false
	}
	if _, ok := authorizeOrganizer(w, r, h.tournamentService, match.TournamentID); !ok {
		return 0, false
	}
	return matchID, true
}

const progressionFailedMessage = "winner progression failed; an operator has been notified"

type recordResultResponse struct {
	*services.RecordResultOutcome
	ProgressionError *errorBody `json:"progression_error,omitempty"`
}

// RecordResultHandler обрабатывает PUT /matches/{matchID}/result.
// A progression failure does not undo the stored result and is returned in the body.
func (h *MatchHandler) RecordResultHandler(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.authorizeMatch(w, r)
	if !ok {
		return
	}

	var input services.RecordResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.matchService.RecordResult(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	resp := recordResultResponse{RecordResultOutcome: outcome}
	if outcome.ProgressionErr != nil {
		body := errorBody{Code: "progression_failed", Message: progressionFailedMessage}
		if _, code, known := errorCode(outcome.ProgressionErr); known {
			body = errorBody{Code: code, Message: outcome.ProgressionErr.Error()}
		}
		resp.ProgressionError = &body
		// детали инфраструктурных ошибок остаются в логе
		slog.WarnContext(r.Context(), "result stored but winner progression failed",
			slog.Int("match_id", matchID), slog.String("code", body.Code), slog.Any("error", outcome.ProgressionErr))
	}

	if err := writeJSON(w, http.StatusOK, resp, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updateScheduleInput struct {
	ScheduledAt *time.Time          `json:"scheduled_at,omitempty"`
	Venue       *string             `json:"venue,omitempty"`
	Status      *models.MatchStatus `json:"status,omitempty"`
}

// UpdateScheduleHandler обрабатывает PATCH /matches/{matchID}/schedule
func (h *MatchHandler) UpdateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.authorizeMatch(w, r)
	if !ok {
		return
	}

	var input updateScheduleInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateSchedule(r.Context(), matchID, models.MatchScheduleUpdate{
		ScheduledAt: input.ScheduledAt,
		Venue:       input.Venue,
		Status:      input.Status,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
