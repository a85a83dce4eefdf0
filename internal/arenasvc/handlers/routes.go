package handlers

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r chi.Router) {
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		if h.socket != nil {
			r.Get("/ws", h.socket.HandleWebSocket)
		}

		// public reads
		r.Get("/player", h.ListPlayers)
		r.Get("/public/player/{id}", h.GetPlayer)
		r.Get("/leaderboard", h.Leaderboard)
		r.Get("/game", h.ListGames)
		r.Get("/game/templates", h.ListTemplates)
		r.Get("/game/{id}", h.GetGame)
		r.Get("/game/instance/{id}", h.GetInstance)

		r.Post("/auth/login", h.Login)
		r.With(jwtauth.Verifier(h.tokenAuth)).Post("/auth/register", h.Register)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/player/{id}", h.GetPlayer)
			r.Post("/player/add", h.AddPlayer)
			r.Put("/player/update/{id}", h.UpdatePlayer)
			r.Delete("/player/{id}", h.DeletePlayer)

			r.Post("/game/create", h.CreateGame)
			r.Put("/game/update/{id}", h.UpdateGame)
			r.Delete("/game/{id}", h.DeleteGame)
			r.Post("/game/initialize", h.InitializeGames)
			r.Post("/game/start", h.StartGame)
			r.Put("/game/result", h.RecordResult)

			r.Get("/admin/stats", h.Stats)
			r.Put("/admin/reset", h.Reset)
			r.Put("/admin/reconcile", h.Reconcile)
		})
	})
}

func InitAuth(jwtKey string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(jwtKey), nil)
}
