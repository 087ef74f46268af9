package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/Excel18-coder/vconect-sub001/internal/handler"
	"github.com/Excel18-coder/vconect-sub001/internal/middleware"
	"github.com/Excel18-coder/vconect-sub001/pkg/cache"
)

// SetupRoutes wires the HTTP surface: a public ingest endpoint, an
// unauthenticated session issue endpoint, and the admin API behind session
// auth.
func SetupRoutes(
	r chi.Router,
	h *handler.CoreHandler,
	auth *middleware.AdminAuth,
	c *cache.Cache,
	rateLimit int,
) chi.Router {
	// ---- Global Middleware ----
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RateLimit(c, rateLimit, time.Minute, "global"))

	// ---- Public ingest ----
	r.Post("/v1/events", h.IngestEvent)

	r.Route("/admin/v1", func(pr chi.Router) {
		// All session routes live under one pattern; a second registration of
		// /sessions elsewhere in the tree would shadow the issue handler.
		pr.Route("/sessions", func(ss chi.Router) {
			// Session issue happens before a token exists.
			ss.Post("/", h.IssueSession)

			ss.Group(func(as chi.Router) {
				as.Use(auth.Require())
				as.Use(middleware.RateLimit(c, rateLimit, time.Minute, "admin"))
				as.Get("/current", h.CurrentSession)
				as.Post("/revoke", h.RevokeSession)
				as.Post("/user/{id}/revoke-all", h.RevokeUserSessions)
				as.Get("/user/{id}", h.ListActiveSessions)
			})
		})

		pr.Group(func(ar chi.Router) {
			ar.Use(auth.Require())
			ar.Use(middleware.RateLimit(c, rateLimit, time.Minute, "admin"))

			// ---------------- Events ----------------
			ar.Route("/events", func(ev chi.Router) {
				ev.Get("/actor/{id}", h.EventsByActor)
				ev.Get("/count", h.EventCount)
			})

			// ---------------- Audit Log ----------------
			ar.Route("/audit", func(au chi.Router) {
				au.Get("/", h.AuditTail)
				au.Get("/target/{type}/{id}", h.AuditByTarget)
				au.Get("/actor/{id}", h.AuditByActor)
			})

			// ---------------- Security Feed ----------------
			ar.Route("/security", func(sec chi.Router) {
				sec.Post("/", h.RaiseSecurityEvent)
				sec.Get("/unresolved", h.UnresolvedSecurityEvents)
				sec.Get("/{id}", h.GetSecurityEvent)
				sec.Post("/{id}/resolve", h.ResolveSecurityEvent)
			})

			// ---------------- Permissions ----------------
			ar.Route("/permissions", func(pm chi.Router) {
				pm.Post("/grant", h.GrantPermission)
				pm.Post("/revoke", h.RevokePermission)
				pm.Get("/user/{id}/check", h.CheckPermission)
				pm.Get("/user/{id}", h.ListPermissions)
			})

			// ---------------- Feature Flags ----------------
			ar.Route("/flags", func(fl chi.Router) {
				fl.Get("/", h.ListFlags)
				fl.Put("/{name}", h.UpsertFlag)
				fl.Get("/{name}", h.GetFlag)
				fl.Delete("/{name}", h.DeleteFlag)
				fl.Get("/{name}/evaluate", h.EvaluateFlag)
			})

			// ---------------- Metrics & Dashboard ----------------
			ar.Post("/metrics/recompute", h.RecomputeMetrics)
			ar.Get("/metrics/{name}/series", h.MetricSeries)
			ar.Get("/dashboard/overview", h.DashboardOverview)
		})
	})

	return r
}
