package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/auth"
	"github.com/frahmantamala/expense-tracker/internal/category"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/report"
	"github.com/frahmantamala/expense-tracker/internal/transport/middleware"
	"github.com/frahmantamala/expense-tracker/internal/transport/swagger"
	"github.com/frahmantamala/expense-tracker/internal/user"
)

// Handlers groups every HTTP handler the API mounts.
type Handlers struct {
	Health   *HealthHandler
	Auth     *auth.Handler
	User     *user.Handler
	Category *category.Handler
	Expense  *expense.Handler
	Report   *report.Handler
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	if h.Health == nil {
		h.Health = NewHealthHandler(nil)
	}

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.NotFound(notFoundHandler)

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", swagger.SpecHandler)
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match the document's server entry
	router.Route(swagger.BasePath, func(r chi.Router) {
		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)

		r.Post("/auth/login", h.Auth.Login)
		r.Post("/users", h.User.CreateUser)

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Get("/users/{id}", h.User.GetUser)

			pr.Route("/categories", func(cr chi.Router) {
				cr.Get("/", h.Category.ListCategories)
				cr.Post("/", h.Category.CreateCategory)
				cr.Get("/{id}", h.Category.GetCategory)
				cr.Put("/{id}", h.Category.UpdateCategory)
				cr.Delete("/{id}", h.Category.DeleteCategory)
			})

			pr.Route("/expenses", func(er chi.Router) {
				er.Get("/", h.Expense.ListExpenses)
				er.Post("/", h.Expense.CreateExpense)
				er.Get("/export", h.Expense.ExportExpenses)
				er.Get("/{id}", h.Expense.GetExpense)
				er.Put("/{id}", h.Expense.UpdateExpense)
				er.Delete("/{id}", h.Expense.DeleteExpense)
			})

			if h.Report != nil {
				pr.Get("/reports/balances", h.Report.GetBalances)
				pr.Post("/reports/balances/reconcile", h.Report.ReconcileBalances)
			}
		})
	})
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	status, body := internal.NewNotFoundError("Unknown endpoint", internal.ErrCodeRouteNotFound).ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
