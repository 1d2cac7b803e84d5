package routes

import (
	"github.com/arenakit/tournament-engine/handlers"
	"github.com/arenakit/tournament-engine/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

func SetupRoutes(
	router *chi.Mux,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
	jwtSecret []byte,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Get("/tournament", tournamentHandler.GetByRoom)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Post("/tournament", tournamentHandler.Create)
		})
	})

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/bracket", tournamentHandler.GetBracket)
		r.Get("/participants", tournamentHandler.GetParticipants)
		r.Get("/stats", tournamentHandler.GetStats)
		r.Get("/current-round", tournamentHandler.GetCurrentRound)
		r.Get("/readiness", tournamentHandler.GetReadiness)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Post("/start", tournamentHandler.Start)
		})
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/remaining", matchHandler.Remaining)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Post("/start", matchHandler.Start)
			r.Post("/complete", matchHandler.Complete)
			r.Post("/timeout", matchHandler.Timeout)
		})
	})

	router.Get("/ws/rooms/{roomID}", webSocketHandler.ServeWs)
}
