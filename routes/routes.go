package routes

import (
	"net/http"

	"github.com/Dosada05/esports-arena/handlers"
	"github.com/Dosada05/esports-arena/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Team       *handlers.TeamHandler
	Tournament *handlers.TournamentHandler
	HallOfFame *handlers.HallOfFameHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRoutes(router chi.Router, h Handlers, jwtSecret string, allowedOrigins []string) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))

	router.Get("/halloffame", h.HallOfFame.List)
	router.Get("/ws/tournaments/{name}", h.WebSocket.ServeWs)

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)

		r.Get("/teams", h.Team.List)
		r.Get("/teams/id/{id}", h.Team.GetByID)
		r.Get("/teams/name/{name}", h.Team.GetByName)

		r.Get("/tournaments", h.Tournament.List)
		r.Get("/tournaments/name/{name}", h.Tournament.GetByName)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/userinfo", h.User.GetInfo)

			r.Post("/teams/request", h.Team.RequestJoin)

			r.Get("/myteam", h.Team.GetMine)
			r.Post("/myteam", h.Team.Create)
			r.Delete("/myteam", h.Team.Leave)
			r.Delete("/myteam/member/{member}", h.Team.Kick)
			r.Get("/myteam/requests", h.Team.ReviewRequests)
			r.Put("/myteam/requests", h.Team.DecideRequest)
			r.Post("/myteam/tournament", h.Team.SignIn)
			r.Post("/myteam/tournament/score", h.Team.SendScore)

			r.Post("/tournaments", h.Tournament.Create)
			// Lifecycle actions answer PUT as well as POST for older clients.
			for _, method := range []string{http.MethodPut, http.MethodPost} {
				r.Method(method, "/tournaments/name/{name}/start", http.HandlerFunc(h.Tournament.Start))
				r.Method(method, "/tournaments/name/{name}/end", http.HandlerFunc(h.Tournament.End))
				r.Method(method, "/tournaments/name/{name}/stage/end", http.HandlerFunc(h.Tournament.SetNextStage))
				r.Method(method, "/tournaments/name/{name}/stage/resolve", http.HandlerFunc(h.Tournament.TryResolveMatches))
			}
			r.Put("/tournaments/name/{name}/stage/date", h.Tournament.SetEndDate)
			r.Put("/tournaments/name/{name}/match/{id}", h.Tournament.ResolveMatch)
		})
	})
}
