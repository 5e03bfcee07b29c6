package handlers

import (
	"errors"
	"net/http"

	"github.com/aanujkhurana/AAA-SportsTournament/middleware"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/services"
)

type ParticipantHandler struct {
	participantService services.ParticipantService
	tournamentService  services.TournamentService
}

func NewParticipantHandler(ps services.ParticipantService, ts services.TournamentService) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: ps,
		tournamentService:  ts,
	}
}

// RegisterHandler обрабатывает POST /tournaments/{tournamentID}/participants.
// Players register themselves; without user_id and team_id the caller is registered.
func (h *ParticipantHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to register")
		return
	}
	role, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to register")
		return
	}

	var input services.RegisterParticipantInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID == nil && input.TeamID == nil {
		input.UserID = &userID
	}
	if role == models.RolePlayer && input.UserID != nil && *input.UserID != userID {
		forbiddenResponse(w, r, "players can only register themselves")
		return
	}

	participant, err := h.participantService.Register(r.Context(), tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /tournaments/{tournamentID}/participants?status=
func (h *ParticipantHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var status *models.ParticipantStatus
	if s := r.URL.Query().Get("status"); s != "" {
		ps := models.ParticipantStatus(s)
		status = &ps
	}

	participants, err := h.participantService.ListParticipants(r.Context(), tournamentID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if participants == nil {
		participants = []*models.Participant{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type changeParticipantStatusInput struct {
	Status models.ParticipantStatus `json:"status"`
}

// ChangeStatusHandler обрабатывает PATCH /participants/{participantID}/status.
// Organizers decide on applications; the registered player may only withdraw.
func (h *ParticipantHandler) ChangeStatusHandler(w http.ResponseWriter, r *http.Request) {
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input changeParticipantStatusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Status == "" {
		badRequestResponse(w, r, errors.New("status is required"))
		return
	}

	participant, err := h.participantService.GetParticipant(r.Context(), participantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	selfWithdraw := input.Status == models.ParticipantWithdrawn &&
		participant.UserID != nil && *participant.UserID == userID
	if !selfWithdraw {
		if _, ok := authorizeOrganizer(w, r, h.tournamentService, participant.TournamentID); !ok {
			return
		}
	}

	updated, err := h.participantService.ChangeStatus(r.Context(), participantID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participant": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
