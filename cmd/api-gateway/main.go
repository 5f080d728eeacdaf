package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/invigilation-api/api/swagger"
	"github.com/noah-isme/invigilation-api/internal/aggregation"
	"github.com/noah-isme/invigilation-api/internal/handler"
	internalmiddleware "github.com/noah-isme/invigilation-api/internal/middleware"
	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/repository"
	"github.com/noah-isme/invigilation-api/internal/schema"
	"github.com/noah-isme/invigilation-api/internal/service"
	"github.com/noah-isme/invigilation-api/internal/validation"
	"github.com/noah-isme/invigilation-api/pkg/cache"
	"github.com/noah-isme/invigilation-api/pkg/config"
	"github.com/noah-isme/invigilation-api/pkg/database"
	"github.com/noah-isme/invigilation-api/pkg/jobs"
	"github.com/noah-isme/invigilation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/invigilation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/invigilation-api/pkg/middleware/requestid"
	"github.com/noah-isme/invigilation-api/pkg/storage"
)

// @title Invigilation API
// @version 1.0.0
// @description Spreadsheet import validation and invigilation document generation for exam sessions.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	verdictStore := newVerdictStore(cfg, logr)

	catalog, err := loadCatalog(cfg.Imports.SchemaFile)
	if err != nil {
		logr.Sugar().Fatalw("schema catalog invalid", "error", err)
	}

	uploads, err := storage.NewLocalStorage(cfg.Imports.UploadDir)
	if err != nil {
		logr.Sugar().Fatalw("upload storage unavailable", "error", err)
	}
	documentsDir, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("document storage unavailable", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration)

	sessionRepo := repository.NewSessionRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	importRepo := repository.NewImportRepository(db)
	exportRepo := repository.NewExportRepository(db)
	jobRepo := repository.NewDocumentJobRepository(db)

	engine := validation.NewEngine(catalog,
		validation.WithTimeTolerance(cfg.Imports.TimeTolerance),
		validation.WithLogger(logr),
		validation.WithObserver(metricsSvc.RecordValidation),
	)
	verdicts := service.NewVerdictCache(verdictStore, cfg.Imports.VerdictTTL, metricsSvc, logr)
	mapper := service.NewImportMapper(teacherRepo, preferenceRepo, slotRepo, logr)
	importSvc := service.NewImportService(importRepo, sessionRepo, uploads, engine, mapper, verdicts, metricsSvc, logr, service.ImportServiceConfig{
		MaxFileSize: cfg.Imports.MaxFileSizeBytes,
		StaleAfter:  24 * time.Hour,
		ExpiryEvery: time.Hour,
	})
	sessionSvc := service.NewSessionService(sessionRepo, validate, logr)
	documentSvc := service.NewDocumentService(service.DocumentDeps{
		Sessions:    sessionRepo,
		Teachers:    teacherRepo,
		Slots:       slotRepo,
		Assignments: assignmentRepo,
		Exports:     exportRepo,
		Storage:     documentsDir,
		Signer:      signer,
		Templates:   service.NewTemplateStore(cfg.Documents.TemplateDir),
		Engine:      aggregation.NewEngine(cfg.Documents.DefaultDuration, logr),
		Metrics:     metricsSvc,
	}, service.DocumentConfig{APIPrefix: cfg.APIPrefix, CleanupInterval: cfg.Documents.CleanupInterval}, logr)

	worker := service.NewDocumentWorker(jobRepo, documentSvc, cfg.Documents.WorkerRetries, logr)
	queue := jobs.NewQueue(service.DocumentJobType, worker.Handle, jobs.QueueConfig{
		Workers:       cfg.Documents.WorkerConcurrency,
		BufferSize:    64,
		MaxRetries:    cfg.Documents.WorkerRetries,
		RetryDelay:    2 * time.Second,
		MaxRetryDelay: time.Minute,
		JobTimeout:    5 * time.Minute,
		Logger:        logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	jobSvc := service.NewDocumentJobService(jobRepo, sessionRepo, queue, validate, logr)
	jobSvc.RecoverPendingJobs(ctx)

	importSvc.StartExpiry(ctx)
	documentSvc.StartCleanup(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		tokens:    tokens,
		imports:   handler.NewImportHandler(importSvc),
		sessions:  handler.NewSessionHandler(sessionSvc, documentSvc, logr),
		documents: handler.NewDocumentHandler(documentSvc, jobSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped")
}

type routeDeps struct {
	tokens    internalmiddleware.TokenValidator
	imports   *handler.ImportHandler
	sessions  *handler.SessionHandler
	documents *handler.DocumentHandler
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	// Signed tokens authorise downloads on their own.
	api.GET("/documents/download/:token", deps.documents.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(deps.tokens))
	admin := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	secured.GET("/sessions", deps.sessions.List)
	secured.POST("/sessions", admin, deps.sessions.Create)
	secured.GET("/sessions/:id", deps.sessions.Get)
	secured.GET("/sessions/:id/contexts/teachers", deps.sessions.TeacherContexts)
	secured.POST("/sessions/:id/contexts/teachers", deps.sessions.TeacherContexts)
	secured.GET("/sessions/:id/contexts/sessions", deps.sessions.SessionContexts)
	secured.POST("/sessions/:id/contexts/sessions", deps.sessions.SessionContexts)
	secured.POST("/sessions/:id/documents/:kind", admin, deps.documents.Generate)
	secured.GET("/sessions/:id/exports", deps.documents.ListExports)
	secured.GET("/sessions/:id/planning.xlsx", deps.documents.PlanningXLSX)
	secured.GET("/sessions/:id/planning.csv", deps.documents.PlanningCSV)

	secured.POST("/validations", deps.imports.Validate)
	secured.POST("/imports", admin, deps.imports.Upload)
	secured.GET("/imports/:id", deps.imports.Get)
	secured.GET("/imports/:id/verdict", deps.imports.Verdict)
	secured.POST("/imports/:id/persist", admin, deps.imports.Persist)

	secured.POST("/documents/jobs", admin, deps.documents.CreateJob)
	secured.GET("/documents/jobs/:id", deps.documents.JobStatus)
}

// newVerdictStore picks the verdict cache backend; an unreachable Redis falls back to memory.
func newVerdictStore(cfg *config.Config, logr *zap.Logger) cache.Store {
	if cfg.Cache.Backend == config.CacheBackendRedis {
		client, err := cache.NewRedis(cfg.Redis)
		if err == nil {
			return cache.NewRedisStore(client, "invigilation:")
		}
		logr.Sugar().Warnw("redis unavailable, using in-memory verdict cache", "error", err)
	}
	return cache.NewMemoryStore(cfg.Cache.CleanupInterval)
}

func loadCatalog(path string) (*schema.Catalog, error) {
	if path == "" {
		return schema.Default()
	}
	return schema.Load(path)
}
