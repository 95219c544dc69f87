package router

import (
	"slices"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/portalsync/internal/infrastructure/config"
	"github.com/erp/portalsync/internal/infrastructure/logger"
	"github.com/erp/portalsync/internal/interfaces/http/handler"
	"github.com/erp/portalsync/internal/interfaces/http/middleware"
)

// Deps are the collaborators of the HTTP engine.
type Deps struct {
	Logger  *zap.Logger
	Version string
	Runner  handler.SyncRunner
	// DB is pinged by /health; nil skips the database check.
	DB handler.Pinger
	// Swagger serves /swagger/*any when set and enabled in config.
	Swagger gin.HandlerFunc

	TracerProvider trace.TracerProvider
	Meter          metric.Meter
}

// NewEngine builds the gin engine with the middleware stack and every route.
//
// Middleware order: request id, recovery, access log, tracing, span
// enrichment, metrics, profiling labels, security headers, CORS, body limit.
// The sync group adds the trigger rate limit ahead of the shared secret
// check so that secret guessing is throttled too.
func NewEngine(cfg *config.Config, deps Deps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		Enabled:        cfg.Telemetry.Enabled,
		TracerProvider: deps.TracerProvider,
	}))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.SpanEnricher())
	}
	engine.Use(middleware.HTTPMetrics(deps.Meter, log))
	if cfg.Profiling.Enabled && deps.Runner != nil {
		profiling := middleware.DefaultProfilingConfig()
		profiling.Jobs = deps.Runner.Jobs()
		engine.Use(middleware.Profiling(profiling))
	}
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = slices.Clone(cfg.HTTP.CORSAllowHeaders)
	if cfg.Sync.SecretHeader != "" {
		cors.AllowHeaders = append(cors.AllowHeaders, cfg.Sync.SecretHeader)
	}
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, deps.Version, deps.DB)
	engine.GET("/health", systemHandler.Health)

	if deps.Swagger != nil && cfg.Swagger.Enabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				Enabled:    true,
				AllowedIPs: cfg.Swagger.AllowedIPs,
			}),
			deps.Swagger,
		)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(NewDomainGroup("system", "/system").
		GET("/info", systemHandler.GetSystemInfo))
	r.Register(syncRoutes(cfg.Sync, deps.Runner, log))
	r.Setup()

	return engine
}

func syncRoutes(cfg config.SyncConfig, runner handler.SyncRunner, log *zap.Logger) *DomainGroup {
	syncHandler := handler.NewSyncHandler(runner)
	group := NewDomainGroup("sync", "/sync")

	if cfg.TriggerRateLimit > 0 {
		group.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.TriggerRateLimit, cfg.TriggerRateWindow)))
		log.Info("Sync trigger rate limit enabled",
			zap.Int("requests", cfg.TriggerRateLimit),
			zap.Duration("window", cfg.TriggerRateWindow),
		)
	}
	group.Use(middleware.SharedSecret(middleware.SharedSecretConfig{
		Header:     cfg.SecretHeader,
		Secret:     cfg.Secret,
		SecretHash: cfg.SecretHash,
	}, log))

	group.GET("/jobs", syncHandler.ListJobs)
	group.GET("/runs", syncHandler.ListRuns)
	group.GET("/runs/:id", syncHandler.GetRun)
	group.POST("/:job", syncHandler.Trigger)
	return group
}
