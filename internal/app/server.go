// Package app assembles the HTTP server from configuration and infrastructure.
package app

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/rightsplace/rightsplace/internal/api/http"
	"github.com/rightsplace/rightsplace/internal/api/http/handlers"
	"github.com/rightsplace/rightsplace/internal/auth"
	"github.com/rightsplace/rightsplace/internal/cache"
	"github.com/rightsplace/rightsplace/internal/config"
	"github.com/rightsplace/rightsplace/internal/events"
	"github.com/rightsplace/rightsplace/internal/observability"
	"github.com/rightsplace/rightsplace/internal/persistence"
	"github.com/rightsplace/rightsplace/internal/repository"
	"github.com/rightsplace/rightsplace/internal/service"
	"github.com/rightsplace/rightsplace/internal/storage"
	"github.com/rightsplace/rightsplace/internal/worker"
)

// Infrastructure carries the already-connected backends. Postgres and Redis
// may be nil.
type Infrastructure struct {
	Postgres     *persistence.Postgres
	Redis        *persistence.Redis
	Repositories repository.Repositories
	Blobs        storage.BlobStore
}

// Server is the assembled application.
type Server struct {
	App     *fiber.App
	Auth    *service.AuthService
	Reports *service.ReportService
	Cases   *service.CaseService
	Limiter *httptransport.IPRateLimiter
	Metrics *observability.Metrics
}

// NewServer wires services, handlers and routes.
func NewServer(cfg config.Config, logger *zap.Logger, infra Infrastructure) *Server {
	repos := infra.Repositories
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	partnerCache := cache.NewPartnerCache(infra.Redis.Handle(), cfg.Redis.PartnerCacheTTL)

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:    repos.Users,
		ProfileRepo: repos.Profiles,
		Logger:      logger,
	})
	evidenceService := service.NewEvidenceService(service.EvidenceDependencies{
		EvidenceRepo: repos.Evidence,
		ReportRepo:   repos.Reports,
		Blobs:        infra.Blobs,
		Upload:       cfg.Upload,
		Metrics:      metrics,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo:      repos.Reports,
		CaseRepo:        repos.Cases,
		HistoryRepo:     repos.History,
		EvidenceService: evidenceService,
		Metrics:         metrics,
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:    repos.Cases,
		ReportRepo:  repos.Reports,
		ProfileRepo: repos.Profiles,
		HistoryRepo: repos.History,
		Metrics:     metrics,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	verificationService := service.NewVerificationService(service.VerificationDependencies{
		ProfileRepo: repos.Profiles,
		Cache:       partnerCache,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		ReportRepo: repos.Reports,
		CaseRepo:   repos.Cases,
	})

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.Users, repos.Profiles)
	limiter := httptransport.NewIPRateLimiter(cfg.RateLimit.AnonymousPerMinute, cfg.RateLimit.AnonymousBurst)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.Upload.MaxBodySize(),
		StreamRequestBody:     true,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	app.Use(httptransport.BodySizeLimit(cfg.Upload.MaxBodySize()))

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, infra.Postgres, infra.Redis),
		Auth:      handlers.NewAuthHandler(authService),
		Reports:   handlers.NewReportsHandler(reportService, cfg.Upload.EvidenceField),
		Dashboard: handlers.NewDashboardHandler(dashboardService),
		Partners:  handlers.NewPartnersHandler(verificationService),
		Admin: handlers.NewAdminHandler(handlers.AdminDependencies{
			Reports:       reportService,
			Evidence:      evidenceService,
			Cases:         caseService,
			Verification:  verificationService,
			EvidenceField: cfg.Upload.EvidenceField,
		}),
		AuthMiddleware: authMiddleware,
		Limiter:        limiter,
		Metrics:        metrics,
	})

	return &Server{
		App:     app,
		Auth:    authService,
		Reports: reportService,
		Cases:   caseService,
		Limiter: limiter,
		Metrics: metrics,
	}
}

// Bootstrap performs startup tasks that need the database.
func (s *Server) Bootstrap(ctx context.Context, cfg config.BootstrapConfig) error {
	return s.Auth.BootstrapAdmin(ctx, cfg)
}
