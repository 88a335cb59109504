// Package httptransport is the thin HTTP layer. It delegates to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"krishichain/internal/custody"
	"krishichain/internal/dashboard"
	"krishichain/internal/identity"
	"krishichain/internal/jwttoken"
	"krishichain/internal/platform/middleware"
	"krishichain/internal/verify"
)

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	logger     *slog.Logger
	identity   *identity.Service
	tokens     *jwttoken.Service
	engine     *custody.Engine
	verifier   *verify.Assembler
	dashboards *dashboard.Service
}

func NewHandler(
	logger *slog.Logger,
	identitySvc *identity.Service,
	tokens *jwttoken.Service,
	engine *custody.Engine,
	verifier *verify.Assembler,
	dashboards *dashboard.Service,
) *Handler {
	return &Handler{
		logger:     logger,
		identity:   identitySvc,
		tokens:     tokens,
		engine:     engine,
		verifier:   verifier,
		dashboards: dashboards,
	}
}

// NewRouter wires all public endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/api/health", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/register", h.handleRegister)
	r.Post("/api/login", h.handleLogin)

	// Custody writes and dashboards require an authenticated participant;
	// role checks live in the services, not here.
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(h.tokens, h.logger))
		pr.Post("/api/logout", h.handleLogout)
		pr.Post("/api/farmer/register-product", h.handleRegisterProduct)
		pr.Post("/api/distributor/add-record", h.handleDistributorRecord)
		pr.Post("/api/retailer/add-record", h.handleRetailerRecord)
		pr.Post("/api/customer/confirm", h.handleCustomerConfirm)
		pr.Get("/api/dashboard", h.handleDashboard)
	})

	// Anyone with a token on the label may verify; authentication is
	// optional and only enriches the lookup log.
	r.Group(func(vr chi.Router) {
		vr.Use(middleware.OptionalAuth(h.tokens))
		vr.Get("/api/verify-product/{qrCode}", h.handleVerify)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "KrishiChain API is running",
	})
}
