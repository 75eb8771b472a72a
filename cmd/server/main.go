// Command server runs the clinic warehouse HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appclinical "github.com/clinic/backend/internal/application/clinical"
	appwarehouse "github.com/clinic/backend/internal/application/warehouse"
	"github.com/clinic/backend/internal/infrastructure/auth"
	"github.com/clinic/backend/internal/infrastructure/config"
	"github.com/clinic/backend/internal/infrastructure/logger"
	"github.com/clinic/backend/internal/infrastructure/persistence"
	"github.com/clinic/backend/internal/infrastructure/telemetry"
	"github.com/clinic/backend/internal/interfaces/http/handler"
	"github.com/clinic/backend/internal/interfaces/http/middleware"
	"github.com/clinic/backend/internal/interfaces/http/router"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("Starting warehouse service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}()

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithGormLogger(&cfg.Database, gormLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Database close failed", zap.Error(err))
		}
	}()

	dbTracingCfg := telemetry.DefaultDBTracingConfig()
	dbTracingCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracingCfg.LogFullSQL = cfg.App.Env != "production"
	dbTracing := telemetry.NewDBTracingPlugin(dbTracingCfg, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	// application services share one transaction scope and code generator
	scope := persistence.NewGormTransactionScope(db.DB)
	codeGen := persistence.NewGormCodeGenerator(db.DB)

	storageService := appwarehouse.NewStorageService(scope, codeGen)
	historyService := appwarehouse.NewHistoryService(
		persistence.NewGormStorageTransactionRepository(db.DB),
		persistence.NewGormBatchRepository(db.DB),
		persistence.NewGormItemRepository(db.DB),
	)
	deductionService := appclinical.NewDeductionService(scope, codeGen)

	jwtService := auth.NewJWTService(cfg.JWT)

	engine := buildEngine(cfg, log, jwtService)
	handler.NewSystemHandler(db).RegisterRoutes(engine)
	router.NewRouter(engine).
		Register(handler.NewStorageHandler(storageService)).
		Register(handler.NewHistoryHandler(historyService)).
		Register(handler.NewMaterialHandler(deductionService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// buildEngine assembles the gin engine with the full middleware chain
func buildEngine(cfg *config.Config, log *zap.Logger, jwtService *auth.JWTService) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Failed to set trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.Logger = log

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsCfg),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanErrorMarker(),
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
	)

	return engine
}
