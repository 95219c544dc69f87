package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	erpsyncapp "github.com/erp/portalsync/internal/application/erpsync"
	"github.com/erp/portalsync/internal/domain/erpsync"
	"github.com/erp/portalsync/internal/infrastructure/cache"
	"github.com/erp/portalsync/internal/infrastructure/config"
	"github.com/erp/portalsync/internal/infrastructure/logger"
	"github.com/erp/portalsync/internal/infrastructure/netsuite"
	"github.com/erp/portalsync/internal/infrastructure/persistence"
	"github.com/erp/portalsync/internal/infrastructure/storage"
	"github.com/erp/portalsync/internal/infrastructure/telemetry"
	"github.com/erp/portalsync/internal/interfaces/http/router"

	_ "github.com/erp/portalsync/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//	@title			Portal Sync API
//	@version		1.0
//	@description	Pulls customers, shipment ETAs, payment instruments and customer identifiers from the ERP and reconciles them into the portal database.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	SyncSecret
//	@in							header
//	@name						X-Sync-Secret
//	@description				Shared secret authorizing sync triggers and run history.

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	telemetry.ServiceVersion = version

	ctx := context.Background()
	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}

	// The OTLP log pipeline needs a logger for its own diagnostics, so it is
	// built with a bootstrap logger and then teed into the real one.
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log, err := logger.New(logCfg, logProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting portal sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:              cfg.Profiling.Enabled,
		ServerAddress:        cfg.Profiling.ServerAddress,
		ApplicationName:      cfg.Profiling.ApplicationName,
		BasicAuthUser:        cfg.Profiling.BasicAuthUser,
		BasicAuthPassword:    cfg.Profiling.BasicAuthPassword,
		ProfileTypes:         cfg.Profiling.ProfileTypes,
		MutexProfileFraction: cfg.Profiling.MutexProfileFraction,
		BlockProfileRate:     cfg.Profiling.BlockProfileRate,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	syncMetrics, err := telemetry.NewSyncMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	dbInstrumentation, err := telemetry.NewDBInstrumentation(telemetry.DBConfig{
		TraceEnabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, meter, log)
	if err != nil {
		log.Fatal("Failed to create database instrumentation", zap.Error(err))
	}
	if err := db.DB.Use(dbInstrumentation); err != nil {
		log.Fatal("Failed to install database instrumentation", zap.Error(err))
	}
	log.Info("Database connected successfully")

	tokenStore, err := cache.NewTokenStoreFactory(cfg.Redis, cfg.NetSuite.AccountID,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.NetSuite.ShareToken),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create token store", zap.Error(err))
	}
	defer func() { _ = tokenStore.Close() }()

	fetcher, err := tokenFetcher(cfg.NetSuite)
	if err != nil {
		log.Fatal("Failed to configure ERP credentials", zap.Error(err))
	}
	tokens := netsuite.NewTokenCache(fetcher,
		netsuite.WithSkew(cfg.NetSuite.TokenSkew),
		netsuite.WithTokenStore(tokenStore),
		netsuite.WithTokenLogger(log),
	)

	client, err := netsuite.NewClient(&netsuite.Config{
		AccountID:      cfg.NetSuite.AccountID,
		QueryURL:       cfg.NetSuite.QueryURL,
		ScriptURL:      cfg.NetSuite.ScriptURL,
		QueryPageSize:  cfg.NetSuite.QueryPageSize,
		PageLines:      cfg.NetSuite.PageLines,
		TimeoutSeconds: cfg.NetSuite.TimeoutSeconds,
		MaxWait:        cfg.NetSuite.MaxWait,
		UserAgent:      cfg.App.Name + "/" + version,
	}, tokens,
		netsuite.WithRetryObserver(syncMetrics),
		netsuite.WithLogger(log),
	)
	if err != nil {
		log.Fatal("Failed to create ERP client", zap.Error(err))
	}
	files := netsuite.NewFiles(client, client, cfg.NetSuite.PageLines, log)

	store, err := persistence.NewSyncStore(db.DB, log)
	if err != nil {
		log.Fatal("Failed to create sync store", zap.Error(err))
	}
	archive := newArchive(ctx, cfg, log)

	jobs := erpsyncapp.NewJobs(erpsyncapp.Deps{
		Query:   client,
		Files:   files,
		Store:   store,
		Cursors: persistence.NewGormCursorRepository(db.DB),
		Archive: archive,
		Logger:  log,
	}, erpsyncapp.JobConfig{
		BatchSize:           cfg.Sync.BatchSize,
		DefaultConcurrency:  cfg.Sync.DefaultConcurrency,
		MaxConcurrency:      cfg.Sync.MaxConcurrency,
		DefaultLookbackDays: cfg.Sync.DefaultLookbackDays,
		PageLines:           cfg.NetSuite.PageLines,
		ETAManifestFileID:   cfg.Sync.ETAManifestFileID,
		ETAExportName:       cfg.Sync.ETAExportName,
		IdentifierFileName:  cfg.Sync.IdentifierFileName,
		IdentifierFolder:    cfg.Sync.IdentifierFolder,
	})
	syncService := erpsyncapp.NewSyncService(jobs, persistence.NewGormRunRepository(db.DB),
		erpsyncapp.WithArchive(archive),
		erpsyncapp.WithObserver(syncMetrics),
		erpsyncapp.WithJobTimeout(cfg.Sync.JobTimeout),
		erpsyncapp.WithServiceLogger(log),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewEngine(cfg, router.Deps{
		Logger:  log,
		Version: version,
		Runner:  syncService,
		DB:      db,
		Swagger: ginSwagger.WrapHandler(swaggerFiles.Handler),
		Meter:   meter,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.Strings("jobs", syncService.Jobs()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// in-flight triggers run to completion, bounded by the job timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Sync.JobTimeout+30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Metrics shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracing shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler shutdown failed", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Log export shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// tokenFetcher picks the credential flow: a static token for sandboxes,
// the signed client-credentials grant otherwise.
func tokenFetcher(cfg config.NetSuiteConfig) (netsuite.TokenFetcher, error) {
	if cfg.StaticToken != "" {
		return netsuite.StaticToken(cfg.StaticToken), nil
	}
	return netsuite.NewClientCredentials(netsuite.OAuthConfig{
		TokenURL:       cfg.TokenURL,
		ClientID:       cfg.ClientID,
		CertificateID:  cfg.CertificateID,
		PrivateKeyPEM:  cfg.PrivateKeyPEM,
		PrivateKeyFile: cfg.PrivateKeyFile,
		Scopes:         cfg.Scopes,
	}, &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second})
}

// newArchive returns the S3 archive when storage is configured. Archiving
// is best effort, so a storage misconfiguration degrades to an in-process
// archive instead of stopping the server.
func newArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) erpsync.Archive {
	if !cfg.Sync.ArchiveReports {
		return nil
	}
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3Archive(&cfg.Storage, storage.WithLogger(log))
		if err == nil {
			err = s3.EnsureBucket(ctx)
		}
		if err == nil {
			log.Info("Archiving sync reports to object storage", zap.String("bucket", s3.Bucket()))
			return s3
		}
		log.Warn("Object storage unavailable, keeping archives in memory", zap.Error(err))
	}
	return storage.NewMemoryArchive(100)
}
