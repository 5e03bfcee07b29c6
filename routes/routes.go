package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/docs"
	"github.com/aanujkhurana/AAA-SportsTournament/handlers"
	"github.com/aanujkhurana/AAA-SportsTournament/metrics"
	"github.com/aanujkhurana/AAA-SportsTournament/middleware"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Tournament  *handlers.TournamentHandler
	Bracket     *handlers.BracketHandler
	Match       *handlers.MatchHandler
	Participant *handlers.ParticipantHandler
	WebSocket   *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	Logger         *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true, Timeout: 2 * time.Second})

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(sentryHandler.Handle)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", metrics.Handler())
	router.Get("/swagger/doc.json", docs.DocHandler)
	router.Get("/swagger/*", docs.UIHandler())

	authenticate := middleware.Authenticate(opts.JWTSecret)
	organizerOnly := middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
		r.Get("/{tournamentID}/bracket", h.Bracket.GetHandler)
		r.Get("/{tournamentID}/standings", h.Bracket.StandingsHandler)
		r.Get("/{tournamentID}/matches", h.Match.ListHandler)
		r.Get("/{tournamentID}/participants", h.Participant.ListHandler)

		r.Group(func(r chi.Router) {
			r.Use(opts.RateLimiter.Handler)
			r.Use(authenticate)

			r.Post("/{tournamentID}/participants", h.Participant.RegisterHandler)

			// Только организаторы и админы
			r.Group(func(r chi.Router) {
				r.Use(organizerOnly)
				r.Post("/", h.Tournament.CreateHandler)
				r.Patch("/{tournamentID}/status", h.Tournament.UpdateStatusHandler)
				r.Delete("/{tournamentID}", h.Tournament.DeleteHandler)
				r.Post("/{tournamentID}/bracket", h.Bracket.GenerateHandler)
			})
		})
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", h.Match.GetHandler)

		r.Group(func(r chi.Router) {
			r.Use(opts.RateLimiter.Handler)
			r.Use(authenticate)
			r.Use(organizerOnly)
			r.Put("/result", h.Match.RecordResultHandler)
			r.Patch("/schedule", h.Match.UpdateScheduleHandler)
		})
	})

	router.Route("/participants/{participantID}", func(r chi.Router) {
		r.Use(opts.RateLimiter.Handler)
		r.Use(authenticate)
		r.Patch("/status", h.Participant.ChangeStatusHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)
}
