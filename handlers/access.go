package handlers

import (
	"errors"
	"net/http"

	"github.com/aanujkhurana/AAA-SportsTournament/middleware"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/services"
)

var errNotOrganizer = errors.New("only the tournament organizer or an admin can manage this tournament")

// authorizeOrganizer loads the tournament and checks that the caller owns it.
// It writes the error response itself and reports false when the request must stop.
func authorizeOrganizer(w http.ResponseWriter, r *http.Request, ts services.TournamentService, tournamentID int) (*models.Tournament, bool) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return nil, false
	}
	role, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return nil, false
	}

	tournament, err := ts.GetTournamentByID(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return nil, false
	}
	if role != models.RoleAdmin && tournament.OrganizerID != userID {
		forbiddenResponse(w, r, errNotOrganizer.Error())
		return nil, false
	}
	return tournament, true
}
