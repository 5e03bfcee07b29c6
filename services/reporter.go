package services

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/getsentry/sentry-go"
)

// OperatorReporter surfaces failures that need a human, such as a winner that
// could not be moved into its downstream match.
type OperatorReporter interface {
	ReportProgressionFailure(ctx context.Context, match *models.Match, err error)
}

type sentryReporter struct {
	logger *slog.Logger
}

// NewSentryReporter expects sentry.Init to have been called by the caller.
func NewSentryReporter(logger *slog.Logger) OperatorReporter {
	return &sentryReporter{logger: logger}
}

func (r *sentryReporter) ReportProgressionFailure(ctx context.Context, match *models.Match, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("tournament_id", strconv.Itoa(match.TournamentID))
		scope.SetTag("match_id", strconv.Itoa(match.ID))
		scope.SetContext("progression", sentry.Context{
			"round":         match.Round,
			"next_match_id": match.NextMatchID,
			"next_slot":     match.NextSlot,
			"winner":        match.WinnerParticipantID,
		})
		hub.CaptureException(err)
	})
	logProgressionFailure(ctx, r.logger, match, err)
}

type logReporter struct {
	logger *slog.Logger
}

// NewLogReporter is used when no Sentry DSN is configured.
func NewLogReporter(logger *slog.Logger) OperatorReporter {
	return &logReporter{logger: logger}
}

func (r *logReporter) ReportProgressionFailure(ctx context.Context, match *models.Match, err error) {
	logProgressionFailure(ctx, r.logger, match, err)
}

func logProgressionFailure(ctx context.Context, logger *slog.Logger, match *models.Match, err error) {
	logger.ErrorContext(ctx, "winner progression failed, operator action required",
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("match_id", match.ID),
		slog.Int("round", match.Round),
		slog.Any("error", err))
}
