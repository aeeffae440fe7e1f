/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions. This is
  the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/upload                      Workbook upload
  /api/status                      Load/AI status
  /api/filters, /api/summary       Filter options and KPI summary
  /api/sales/*, /api/claims/*      Aggregations
  /api/correlations, /api/predict, /api/budget, /api/insights
  /api/data/*                      Raw data paging, editing, audit, reset
  /api/export/{table}              Spreadsheet download
  /api/chat*                       AI assistant

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Get("/status", h.Status)

		r.Get("/filters", h.FilterOptions)
		r.Get("/summary", h.Summary)

		r.Route("/sales", func(r chi.Router) {
			r.Get("/monthly", h.SalesMonthly)
			r.Get("/dealers", h.SalesDealers)
			r.Get("/products", h.SalesProducts)
			r.Get("/vehicles", h.SalesVehicles)
		})

		r.Route("/claims", func(r chi.Router) {
			r.Get("/status", h.ClaimsStatus)
			r.Get("/parts", h.ClaimsParts)
			r.Get("/trends", h.ClaimsTrends)
			r.Get("/recent", h.ClaimsRecent)
		})

		r.Get("/correlations", h.Correlations)
		r.Get("/predict", h.Predict)
		r.Get("/budget", h.Budget)
		r.Get("/insights", h.Insights)

		r.Route("/data", func(r chi.Router) {
			r.Get("/{table}", h.RawData)
			r.Put("/update", h.UpdateCell)
			r.Put("/bulk-update", h.BulkUpdate)
			r.Post("/reset", h.Reset)
			r.Get("/changes", h.ChangeLog)
		})

		r.Get("/export/{table}", h.Export)

		r.Post("/chat", h.Chat)
		r.Get("/chat/suggestions", h.ChatSuggestions)
	})

	return r
}
