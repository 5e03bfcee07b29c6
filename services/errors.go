package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrParticipantNotFound = errors.New("participant registration not found")

	// Ошибки генерации сетки
	ErrInsufficientParticipants = errors.New("at least 2 approved participants are required to generate a bracket")
	ErrCapacityExceeded         = errors.New("tournament capacity exceeded")
	ErrRegenerationNotConfirmed = errors.New("matches have already been played; regeneration must be confirmed")
	ErrUnsupportedFormat        = errors.New("unsupported tournament format")

	// Ошибки записи результата
	ErrParticipantsIncomplete   = errors.New("both match participants must be known before recording a result")
	ErrDuplicateParticipantSlot = errors.New("both match slots would reference the same participant")
	ErrInvalidScore             = errors.New("scores must be non-negative integers")
	ErrTieNotAllowed            = errors.New("ties are not allowed in elimination matches")
	ErrForfeitSideRequired      = errors.New("forfeit requires the forfeiting slot (1 or 2)")
	ErrResultAlreadyRecorded    = errors.New("match already has a result; submit it as a correction to overwrite")
	ErrMatchNotPlayable         = errors.New("match is cancelled or a bye and cannot take a result")

	// Ошибки продвижения победителя
	ErrProgressionConflict = errors.New("winner progression would overwrite a slot held by another participant")
	ErrMissingForwardLink  = errors.New("match has no forward link although a later round exists")

	// Ошибки расписания
	ErrInvalidMatchStatus = errors.New("invalid match status for a schedule change")
	ErrMatchAlreadyPlayed = errors.New("completed matches cannot be rescheduled")
	ErrEmptyScheduleEdit  = errors.New("schedule change must set at least one field")

	// Ошибки турниров и регистрации
	ErrValidationFailed                  = errors.New("validation failed")
	ErrTournamentNameRequired            = errors.New("tournament name is required")
	ErrTournamentInvalidDateRange        = errors.New("tournament end date must not be before start date")
	ErrTournamentInvalidCapacity         = errors.New("tournament max participants must be at least 2")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentNameConflict            = errors.New("tournament name already exists")
	ErrRegistrationNotOpen               = errors.New("tournament registration is not open")
	ErrRegistrationConflict              = errors.New("user or team is already registered for this tournament")
	ErrInvalidParticipantStatus          = errors.New("invalid participant status provided")
	ErrEntrantRequired                   = errors.New("exactly one of user_id or team_id is required")
)
