package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/aanujkhurana/AAA-SportsTournament/services"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// serviceErrors сопоставляет ошибки сервисов с HTTP-статусом и кодом.
var serviceErrors = []errorMapping{
	{services.ErrTournamentNotFound, http.StatusNotFound, "tournament_not_found"},
	{services.ErrMatchNotFound, http.StatusNotFound, "match_not_found"},
	{services.ErrParticipantNotFound, http.StatusNotFound, "participant_not_found"},

	{services.ErrInsufficientParticipants, http.StatusUnprocessableEntity, "insufficient_participants"},
	{services.ErrParticipantsIncomplete, http.StatusUnprocessableEntity, "participants_incomplete"},
	{services.ErrDuplicateParticipantSlot, http.StatusUnprocessableEntity, "duplicate_participant_slot"},
	{services.ErrInvalidScore, http.StatusUnprocessableEntity, "invalid_score"},
	{services.ErrTieNotAllowed, http.StatusUnprocessableEntity, "tie_not_allowed"},
	{services.ErrForfeitSideRequired, http.StatusUnprocessableEntity, "forfeit_side_required"},
	{services.ErrMatchNotPlayable, http.StatusUnprocessableEntity, "match_not_playable"},
	{services.ErrUnsupportedFormat, http.StatusUnprocessableEntity, "unsupported_format"},
	{services.ErrInvalidMatchStatus, http.StatusUnprocessableEntity, "invalid_match_status"},
	{services.ErrEmptyScheduleEdit, http.StatusUnprocessableEntity, "empty_schedule_edit"},
	{services.ErrValidationFailed, http.StatusUnprocessableEntity, "validation_failed"},
	{services.ErrTournamentNameRequired, http.StatusUnprocessableEntity, "tournament_name_required"},
	{services.ErrTournamentInvalidDateRange, http.StatusUnprocessableEntity, "invalid_date_range"},
	{services.ErrTournamentInvalidCapacity, http.StatusUnprocessableEntity, "invalid_capacity"},
	{services.ErrTournamentInvalidStatus, http.StatusUnprocessableEntity, "invalid_status"},
	{services.ErrInvalidParticipantStatus, http.StatusUnprocessableEntity, "invalid_participant_status"},
	{services.ErrEntrantRequired, http.StatusUnprocessableEntity, "entrant_required"},

	{services.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{services.ErrResultAlreadyRecorded, http.StatusConflict, "result_already_recorded"},
	{services.ErrRegenerationNotConfirmed, http.StatusConflict, "regeneration_not_confirmed"},
	{services.ErrTournamentInvalidStatusTransition, http.StatusConflict, "invalid_status_transition"},
	{services.ErrTournamentNameConflict, http.StatusConflict, "tournament_name_conflict"},
	{services.ErrRegistrationConflict, http.StatusConflict, "registration_conflict"},
	{services.ErrMatchAlreadyPlayed, http.StatusConflict, "match_already_played"},
	{services.ErrProgressionConflict, http.StatusConflict, "progression_conflict"},
	{services.ErrMissingForwardLink, http.StatusConflict, "missing_forward_link"},

	{services.ErrRegistrationNotOpen, http.StatusForbidden, "registration_not_open"},
}

// errorCode returns the machine code for a known service error.
func errorCode(err error) (int, string, bool) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code, true
		}
	}
	return 0, "", false
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	if status, code, ok := errorCode(err); ok {
		errorResponse(w, r, status, code, err.Error())
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		errorResponse(w, r, http.StatusServiceUnavailable, "timeout", "the operation timed out and was not applied")
		return
	}
	serverErrorResponse(w, r, err)
}
