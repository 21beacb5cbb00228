package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/juggajay/site-proof-sub006/internal/auth"
	"github.com/juggajay/site-proof-sub006/internal/config"
	"github.com/juggajay/site-proof-sub006/internal/database"
	"github.com/juggajay/site-proof-sub006/internal/http/handler"
	"github.com/juggajay/site-proof-sub006/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/juggajay/site-proof-sub006/docs" // generated swagger docs
)

// Handlers groups the API handlers mounted under /api/v1
type Handlers struct {
	Auth         *handler.AuthHandler
	Project      *handler.ProjectHandler
	Lot          *handler.LotHandler
	NCR          *handler.NCRHandler
	ITP          *handler.ITPHandler
	HoldPoint    *handler.HoldPointHandler
	Docket       *handler.DocketHandler
	Drawing      *handler.DrawingHandler
	Notification *handler.NotificationHandler
	Audit        *handler.AuditHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	h              Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		h:              handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(rt.cfg.Server.RequestTimeoutDuration()))
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.LimitByUser)

		r.Get("/auth/me", rt.h.Auth.Me)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", rt.h.Project.List)
			r.Post("/", rt.h.Project.Create)
			r.Get("/{id}", rt.h.Project.GetByID)
			r.Post("/{id}/users", rt.h.Project.AddUser)
			r.Post("/{id}/subcontractors", rt.h.Project.AddSubcontractor)
			r.Post("/{id}/subcontractors/{subId}/users", rt.h.Project.AddSubcontractorUser)
		})

		r.Route("/lots", func(r chi.Router) {
			r.Get("/", rt.h.Lot.List)
			r.Post("/", rt.h.Lot.Create)
			r.Get("/{id}", rt.h.Lot.GetByID)
			r.Patch("/{id}", rt.h.Lot.Update)
			r.Delete("/{id}", rt.h.Lot.Delete)
			r.Post("/{id}/subcontractors", rt.h.Lot.AssignSubcontractor)
			r.Delete("/{id}/subcontractors/{subId}", rt.h.Lot.RemoveSubcontractor)
		})

		r.Route("/ncrs", func(r chi.Router) {
			r.Get("/", rt.h.NCR.List)
			r.Post("/", rt.h.NCR.Create)
			r.Get("/{id}", rt.h.NCR.GetByID)
			r.Patch("/{id}", rt.h.NCR.Update)
			r.Post("/{id}/respond", rt.h.NCR.Respond)
			r.Post("/{id}/qm-approve", rt.h.NCR.QMApprove)
			r.Post("/{id}/reject", rt.h.NCR.Reject)
			r.Post("/{id}/close", rt.h.NCR.Close)
			r.Post("/{id}/notify-client", rt.h.NCR.NotifyClient)
		})

		r.Route("/itp", func(r chi.Router) {
			r.Post("/templates", rt.h.ITP.CreateTemplate)
			r.Post("/instances", rt.h.ITP.CreateInstance)
			r.Get("/instances/{id}", rt.h.ITP.GetInstance)
			r.Post("/completions", rt.h.ITP.Complete)
			r.Post("/completions/{id}/verify", rt.h.ITP.Verify)
			r.Post("/completions/{id}/unverify", rt.h.ITP.Unverify)
		})

		r.Route("/holdpoints", func(r chi.Router) {
			r.Get("/", rt.h.HoldPoint.List)
			r.Get("/metrics", rt.h.HoldPoint.Metrics)
			r.Post("/{id}/schedule", rt.h.HoldPoint.Schedule)
			r.Post("/{id}/request", rt.h.HoldPoint.Request)
			r.Post("/{id}/release", rt.h.HoldPoint.Release)
		})

		r.Route("/dockets", func(r chi.Router) {
			r.Get("/", rt.h.Docket.List)
			r.Post("/", rt.h.Docket.Create)
			r.Get("/{id}", rt.h.Docket.GetByID)
			r.Patch("/{id}", rt.h.Docket.Update)
			r.Delete("/{id}", rt.h.Docket.Delete)
			r.Post("/{id}/submit", rt.h.Docket.Submit)
			r.Post("/{id}/approve", rt.h.Docket.Approve)
			r.Post("/{id}/reject", rt.h.Docket.Reject)
		})

		r.Route("/drawings", func(r chi.Router) {
			r.Get("/", rt.h.Drawing.List)
			r.Post("/", rt.h.Drawing.Create)
			r.Get("/{id}", rt.h.Drawing.GetByID)
			r.Delete("/{id}", rt.h.Drawing.Delete)
			r.Post("/{id}/supersede", rt.h.Drawing.Supersede)
			r.Post("/{id}/file", rt.h.Drawing.UploadFile)
			r.Get("/{id}/file", rt.h.Drawing.DownloadFile)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", rt.h.Notification.List)
			r.Get("/count", rt.h.Notification.UnreadCount)
			r.Put("/read-all", rt.h.Notification.MarkAllRead)
			r.Put("/{id}/read", rt.h.Notification.MarkRead)
		})

		r.Get("/audit", rt.h.Audit.List)
	})

	return r
}

func writeHealth(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// databaseHealth is the readiness probe with pool statistics
func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(r.Context(), rt.db)
	if err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"service": "database",
		})
		return
	}
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats":   stats,
	})
}

func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]interface{}{}
	status := http.StatusOK

	if err := database.HealthCheck(r.Context(), rt.db); err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		checks["database"] = map[string]string{"status": "unhealthy"}
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = map[string]string{"status": "healthy"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	writeHealth(w, status, map[string]interface{}{"status": overall, "checks": checks})
}
