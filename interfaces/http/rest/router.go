// Package rest wires the HTTP surface: routing, middleware and handler
// registration.
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"savinggrace-backend/application/ports"
	"savinggrace-backend/infrastructure/config"
	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	"savinggrace-backend/interfaces/http/rest/handlers"
	"savinggrace-backend/interfaces/http/rest/middleware"
	"savinggrace-backend/pkg/auth"
	"savinggrace-backend/pkg/common"
	apperrors "savinggrace-backend/pkg/errors"
)

// Deps carries everything the router needs. All fields are required
// except Blobs, which degrades receipt and export links to errors when
// absent.
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     *dynamostore.Store
	Planner   *dynamostore.Planner
	Blobs     ports.BlobStore
	Directory ports.Directory
	Validator *auth.JWTValidator
}

// NewRouter builds the chi router with the full middleware chain and
// all routes registered.
func NewRouter(deps Deps) *chi.Mux {
	errHandler := apperrors.NewErrorHandler(deps.Logger, deps.Config.IsDevelopment())
	signedTTL := deps.Config.SignedURLTTL

	donors := handlers.NewDonorHandler(deps.Store, deps.Planner, deps.Logger, errHandler)
	donations := handlers.NewDonationHandler(deps.Store, deps.Planner, deps.Blobs, signedTTL, deps.Logger, errHandler)
	recipients := handlers.NewRecipientHandler(deps.Store, deps.Planner, deps.Logger, errHandler)
	distributions := handlers.NewDistributionHandler(deps.Store, deps.Planner, deps.Logger, errHandler)
	inventory := handlers.NewInventoryHandler(deps.Store, deps.Planner, deps.Logger, errHandler)
	reports := handlers.NewReportHandler(deps.Store, deps.Planner, deps.Blobs, signedTTL, deps.Logger, errHandler)
	users := handlers.NewUserHandler(deps.Store, deps.Planner, deps.Directory, deps.Logger, errHandler)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(errHandler.Middleware)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	if deps.Config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Authenticate(deps.Validator, deps.Logger))

		api.Route("/donors", func(dr chi.Router) {
			dr.With(middleware.RequirePermission("donors:create")).Post("/", donors.CreateDonor)
			dr.With(middleware.RequirePermission("donors:read")).Get("/", donors.ListDonors)
			dr.With(middleware.RequirePermission("donors:read")).Get("/{id}", donors.GetDonor)
			dr.With(middleware.RequirePermission("donors:update")).Put("/{id}", donors.UpdateDonor)
			dr.With(middleware.RequirePermission("donations:read")).Get("/{id}/donations", donors.ListDonorDonations)
		})

		api.Route("/donations", func(dr chi.Router) {
			dr.With(middleware.RequirePermission("donations:create")).Post("/", donations.CreateDonation)
			dr.With(middleware.RequirePermission("donations:read")).Get("/", donations.ListDonations)
			dr.With(middleware.RequirePermission("donations:read")).Get("/expiring", donations.ListExpiring)
			dr.With(middleware.RequirePermission("donations:read")).Get("/{id}", donations.GetDonation)
			dr.With(middleware.RequirePermission("donations:update")).Put("/{id}", donations.UpdateDonation)
			dr.With(middleware.RequirePermission("donations:read")).Get("/{id}/receipt", donations.GetReceipt)
		})

		api.Route("/recipients", func(rr chi.Router) {
			rr.With(middleware.RequirePermission("recipients:create")).Post("/", recipients.CreateRecipient)
			rr.With(middleware.RequirePermission("recipients:read")).Get("/", recipients.ListRecipients)
			rr.With(middleware.RequirePermission("recipients:read")).Get("/{id}", recipients.GetRecipient)
			rr.With(middleware.RequirePermission("recipients:update")).Put("/{id}", recipients.UpdateRecipient)
			rr.With(middleware.RequirePermission("distributions:read")).Get("/{id}/history", recipients.ListHistory)
		})

		api.Route("/distributions", func(dr chi.Router) {
			dr.With(middleware.RequirePermission("distributions:create")).Post("/", distributions.CreateDistribution)
			dr.With(middleware.RequirePermission("distributions:read")).Get("/", distributions.ListDistributions)
			dr.With(middleware.RequirePermission("distributions:read")).Get("/{id}", distributions.GetDistribution)
			dr.With(middleware.RequirePermission("distributions:update")).Put("/{id}", distributions.UpdateDistribution)
			dr.With(middleware.RequirePermission("distributions:update")).Post("/{id}/complete", distributions.CompleteDistribution)
		})

		api.Route("/inventory", func(ir chi.Router) {
			ir.With(middleware.RequirePermission("inventory:read")).Get("/", inventory.ListInventory)
			ir.With(middleware.RequirePermission("inventory:update")).Post("/adjust", inventory.AdjustInventory)
			ir.With(middleware.RequirePermission("inventory:read")).Get("/alerts", inventory.ListAlerts)
			ir.With(middleware.RequirePermission("inventory:read")).Get("/adjustments", inventory.ListAdjustments)
			ir.With(middleware.RequirePermission("inventory:read")).Get("/category/{category}", inventory.ListByCategory)
		})

		api.Route("/reports", func(rr chi.Router) {
			rr.With(middleware.RequirePermission("reports:read")).Get("/dashboard", reports.GetDashboard)
			rr.With(middleware.RequirePermission("reports:read")).Get("/donations", reports.GetDonationsReport)
			rr.With(middleware.RequirePermission("reports:read")).Get("/distributions", reports.GetDistributionsReport)
			rr.With(middleware.RequirePermission("reports:read")).Get("/impact", reports.GetImpactReport)
			rr.With(middleware.RequirePermission("reports:create")).Post("/export", reports.ExportReport)
		})

		api.Route("/users", func(ur chi.Router) {
			ur.Use(middleware.RequireRole(auth.RoleAdmin))
			ur.Post("/", users.CreateUser)
			ur.Get("/", users.ListUsers)
			ur.Get("/{id}", users.GetUser)
			ur.Put("/{id}", users.UpdateUser)
			ur.Put("/{id}/role", users.UpdateRole)
			ur.Delete("/{id}", users.DisableUser)
		})
	})

	return r
}
