package sandbox

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Backend) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/google/callback", s.googleCallback)
		r.Post("/auth/demo/login", s.demoLogin)
		r.Post("/auth/refresh", s.refresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/auth/logout", s.logout)

			r.Get("/User/{id}", s.getUser)
			r.Put("/User/{id}", s.putUser)

			r.Post("/scanner/{id}", s.runScanner)

			r.Get("/simulation/portfolios", s.listPortfolios)
			r.Post("/simulation/portfolios", s.createPortfolio)
			r.Get("/simulation/portfolios/{id}", s.getPortfolio)
			r.Get("/simulation/portfolios/{id}/summary", s.getSummary)
			r.Post("/simulation/portfolios/{id}/trades", s.executeTrade)
			r.Get("/simulation/portfolios/{id}/transactions", s.listTransactions)
			r.Get("/simulation/portfolios/{id}/orders", s.listOpenOrders)
			r.Delete("/simulation/orders/{id}", s.cancelOrder)

			r.Get("/ws", s.serveWS)
		})
	})

	return r
}
