package server

import (
	"context"
	"log"
	"net/http"

	"github.com/Excel18-coder/vconect-sub001/internal/config"
	"github.com/Excel18-coder/vconect-sub001/internal/database"
	"github.com/Excel18-coder/vconect-sub001/internal/handler"
	"github.com/Excel18-coder/vconect-sub001/internal/middleware"
	"github.com/Excel18-coder/vconect-sub001/internal/repository"
	"github.com/Excel18-coder/vconect-sub001/internal/router"
	"github.com/Excel18-coder/vconect-sub001/internal/usecase"
	"github.com/Excel18-coder/vconect-sub001/internal/worker"
	"github.com/Excel18-coder/vconect-sub001/pkg/cache"
	"github.com/Excel18-coder/vconect-sub001/pkg/id"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Server bundles the HTTP server with the resources main has to tear down.
type Server struct {
	HTTP   *http.Server
	Worker *worker.AggregateWorker
	DB     *pgxpool.Pool
	Logger *zap.Logger
}

func New(cfg config.AppConfig) *Server {
	// --- Connect Postgres ---
	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect DB: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// --- Init Redis ---
	c := cache.NewCache([]string{cfg.RedisAddr}, cfg.RedisPass, false)

	logger, _ := zap.NewProduction()

	sf, err := id.NewSnowflake(cfg.SnowflakeNode)
	if err != nil {
		log.Fatalf("failed to init snowflake: %v", err)
	}

	// --- Repositories ---
	eventRepo := repository.NewEventRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	securityRepo := repository.NewSecurityRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	flagRepo := repository.NewFlagRepository(db)
	metricRepo := repository.NewMetricRepository(db)

	// --- Usecases ---
	events := usecase.NewEventStore(eventRepo, sf, logger)
	audit := usecase.NewAuditLog(auditRepo, db, sf, logger)
	security := usecase.NewSecurityFeed(securityRepo, logger)
	perms := usecase.NewPermissionRegistry(permRepo)
	sessions := usecase.NewSessionRegistry(sessionRepo, c, logger, cfg.SessionTTL)
	flags := usecase.NewFeatureGate(flagRepo, c, logger)
	metrics := usecase.NewMetricAggregator(metricRepo, logger)
	usecase.RegisterEventMetrics(metrics, eventRepo)
	dashboard := usecase.NewDashboardService(security, audit, metrics, logger)
	adminOps := usecase.NewAdminOps(audit, perms, sessions, flags, security)

	// --- Middleware & Handlers ---
	auth := middleware.NewAdminAuth(sessions, logger)
	coreHandler := handler.NewCoreHandler(
		events, audit, security, perms, sessions, flags, metrics, dashboard, adminOps, logger,
	)

	// --- Router ---
	r := chi.NewRouter()
	router.SetupRoutes(r, coreHandler, auth, c, cfg.RateLimitPerMin)

	return &Server{
		HTTP: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: r,
		},
		Worker: worker.NewAggregateWorker(metrics, perms, logger, cfg.AggregateCron),
		DB:     db,
		Logger: logger,
	}
}
