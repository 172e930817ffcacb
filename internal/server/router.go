package server

import (
	"net/http"

	"player-trade/internal/config"
	"player-trade/internal/metrics"
	"player-trade/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig holds the dependencies of the HTTP API.
type RouterConfig struct {
	Logger         *zap.Logger
	Players        repository.Players
	Trades         repository.Trades
	Engine         Submitter
	Metrics        *metrics.Metrics
	PlayerDefaults config.Players
}

// NewRouter wires middleware and routes.
func NewRouter(cfg RouterConfig) http.Handler {
	h := NewHandler(cfg.Logger, cfg.Players, cfg.Trades, cfg.Engine, cfg.PlayerDefaults)

	r := chi.NewRouter()
	r.Use(RequestID, Recovery(cfg.Logger), Logging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(HTTPMetrics(cfg.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/players", http.StatusFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.ListPlayers)
			r.Post("/", h.CreatePlayer)
			r.Post("/bulk-create", h.BulkCreatePlayers)
			r.Post("/delete-all", h.DeleteAllPlayers)
			r.Get("/{id}", h.GetPlayer)
			r.Put("/{id}", h.UpdatePlayer)
			r.Delete("/{id}", h.DeletePlayer)
		})
		r.Route("/trades", func(r chi.Router) {
			r.Get("/", h.ListTrades)
			r.Post("/", h.SubmitTrade)
			r.Get("/eligibility", h.TradeEligibility)
		})
	})

	return r
}
