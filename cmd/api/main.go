package main

import (
	"context"
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

	_ "github.com/campusnotes/notes-api/api/swagger"
	"github.com/campusnotes/notes-api/internal/handler"
	"github.com/campusnotes/notes-api/internal/middleware"
	"github.com/campusnotes/notes-api/internal/models"
	"github.com/campusnotes/notes-api/internal/repository"
	"github.com/campusnotes/notes-api/internal/service"
	"github.com/campusnotes/notes-api/pkg/cache"
	"github.com/campusnotes/notes-api/pkg/config"
	"github.com/campusnotes/notes-api/pkg/database"
	"github.com/campusnotes/notes-api/pkg/logger"
	corsmiddleware "github.com/campusnotes/notes-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusnotes/notes-api/pkg/middleware/requestid"
	"github.com/campusnotes/notes-api/pkg/storage"
)

// @title Campus Notes API
// @version 1.0.0
// @description Notes distribution backend: faculty uploads, subject taxonomy and archive downloads
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, note listing cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.ObjectStore
	var filesHandler *handler.FilesHandler
	switch cfg.Storage.Driver {
	case config.StorageDriverS3:
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage.Region, cfg.Storage.Bucket, cfg.Storage.SignedURLTTL)
		if err != nil {
			logr.Sugar().Fatalw("failed to init s3 storage", "error", err)
		}
		store = s3Store
	default:
		signer := storage.NewSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
		localStore, err := storage.NewLocalStore(cfg.Storage.BaseDir, cfg.Storage.PublicBaseURL, cfg.APIPrefix, signer)
		if err != nil {
			logr.Sugar().Fatalw("failed to init local storage", "error", err)
		}
		store = localStore
		filesHandler = handler.NewFilesHandler(localStore, signer, cfg.Storage.MaxFileSizeBytes)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	regulationRepo := repository.NewRegulationRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	cascadeRepo := repository.NewCascadeRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	cleanupSvc := service.NewCleanupService(store, cfg.Cleanup, logr)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campus-notes-api",
	})
	regulationSvc := service.NewRegulationService(regulationRepo, validate, logr)
	branchSvc := service.NewBranchService(branchRepo, regulationRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, branchRepo, regulationRepo, validate, logr)
	noteSvc := service.NewNoteService(noteRepo, subjectRepo, branchRepo, store, cacheRepo, cleanupSvc, userRepo, metricsSvc, cfg.Storage, cfg.Notes, validate, logr)
	cascadeSvc := service.NewCascadeService(cascadeRepo, cleanupSvc, cacheRepo, userRepo, metricsSvc, logr)
	archiveSvc := service.NewArchiveService(noteRepo, store, cfg.Notes, metricsSvc, logr)
	exportSvc := service.NewExportService(noteRepo, logr)
	facultySvc := service.NewFacultyService(userRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	regulationHandler := handler.NewRegulationHandler(regulationSvc, cascadeSvc)
	branchHandler := handler.NewBranchHandler(branchSvc, cascadeSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc, cascadeSvc)
	noteHandler := handler.NewNoteHandler(noteSvc, archiveSvc)
	facultyHandler := handler.NewFacultyHandler(facultySvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	authed := api.Group("/auth")
	authed.Use(middleware.JWT(authSvc))
	authed.POST("/logout", authHandler.Logout)
	authed.POST("/change-password", authHandler.ChangePassword)
	authed.GET("/me", authHandler.Me)

	if filesHandler != nil {
		files := api.Group("/files")
		files.PUT("/upload", filesHandler.Upload)
		files.GET("/download", filesHandler.Download)
	}

	notes := api.Group("/notes")
	notes.Use(middleware.JWT(authSvc))
	notes.GET("/subject/:subjectId", noteHandler.ListBySubject)
	notes.POST("/download-zip", noteHandler.DownloadZip)

	uploads := notes.Group("")
	uploads.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty))
	uploads.POST("", noteHandler.Create)
	uploads.POST("/upload-url", noteHandler.UploadURL)
	uploads.GET("/my-uploads", noteHandler.MyUploads)
	uploads.DELETE("/:id", noteHandler.Delete)

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authSvc))
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	admin.GET("/regulations", regulationHandler.List)
	admin.POST("/regulations", regulationHandler.Create)
	admin.GET("/regulations/:id", regulationHandler.Get)
	admin.PUT("/regulations/:id", regulationHandler.Update)
	admin.DELETE("/regulations/:id", regulationHandler.Delete)

	admin.GET("/branches", branchHandler.List)
	admin.POST("/branches", branchHandler.Create)
	admin.GET("/branches/:id", branchHandler.Get)
	admin.PUT("/branches/:id", branchHandler.Update)
	admin.DELETE("/branches/:id", branchHandler.Delete)

	admin.GET("/subjects", subjectHandler.List)
	admin.POST("/subjects", subjectHandler.Create)
	admin.GET("/subjects/:id", subjectHandler.Get)
	admin.PUT("/subjects/:id", subjectHandler.Update)
	admin.DELETE("/subjects/:id", subjectHandler.Delete)

	admin.GET("/faculty", facultyHandler.List)
	admin.POST("/faculty", facultyHandler.Create)
	admin.GET("/faculty/:id", facultyHandler.Get)
	admin.PUT("/faculty/:id", facultyHandler.Update)
	admin.DELETE("/faculty/:id", facultyHandler.Delete)

	admin.GET("/notes/export", exportHandler.Catalog)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "storage_driver", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logr.Sugar().Warnw("failed to close redis client", "error", err)
		}
	}
}
