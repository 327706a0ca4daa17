package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"curiocity/internal/analytics"
	"curiocity/internal/auth"
	"curiocity/internal/config"
	"curiocity/internal/domain/repositories"
	"curiocity/internal/extract"
	"curiocity/internal/handler"
	"curiocity/internal/middleware"
	"curiocity/internal/repository/blob"
	"curiocity/internal/repository/mongodb"
	"curiocity/internal/repository/postgres"
	"curiocity/internal/service"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx := context.Background()

	// Primary store
	mongoClient, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to mongodb: %v", err)
	}
	defer mongoClient.Disconnect(ctx)
	logger.Info("primary store connected", "database", cfg.MongoDatabase)

	repoConfig := &mongodb.RepositoryConfig{
		DB:     db,
		Tables: mongodb.NewTableNames(cfg.DocumentTable, cfg.ResourceTable, cfg.ResourceMetaTable),
		Logger: logger,
	}
	docRepo := mongodb.NewDocumentRepository(repoConfig)
	metaRepo := mongodb.NewResourceMetaRepository(repoConfig)
	resourceRepo := mongodb.NewResourceRepository(repoConfig)

	// Secondary mirror (optional)
	var mirror repositories.MirrorStore
	if cfg.EnableMirror {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.MirrorDBURL)
		if err != nil {
			log.Fatalf("Failed to connect to mirror database: %v", err)
		}
		defer pool.Close()
		mirror = postgres.NewMirrorStore(pool, postgres.NewTableNames(cfg.TablePrefix), logger)
		logger.Info("mirror connected")
	}

	// Blob storage (optional)
	var blobStore repositories.BlobStore
	if cfg.EnableBlobStorage {
		gcs, err := blob.NewGCSBackend(ctx, cfg.GCSBucket, cfg.GoogleCredentials)
		if err != nil {
			log.Fatalf("Failed to create gcs backend: %v", err)
		}
		defer gcs.Close()

		var drive blob.Backend
		if cfg.DriveFolderID != "" {
			d, err := blob.NewDriveBackend(ctx, cfg.DriveFolderID, cfg.GoogleCredentials)
			if err != nil {
				log.Fatalf("Failed to create drive backend: %v", err)
			}
			drive = d
		}
		blobStore = blob.NewDualStore(gcs, drive, logger)
		logger.Info("blob storage enabled", "bucket", cfg.GCSBucket, "drive", cfg.DriveFolderID != "")
	}

	// Text extraction (optional)
	var extractor extract.Extractor
	if cfg.EnableExtraction {
		extractor = extract.New()
	}

	// Analytics (optional)
	var events analytics.Emitter = analytics.Noop{}
	if cfg.EnableAnalytics {
		emitter, err := analytics.NewRedisEmitter(ctx, cfg.RedisURL, logger)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer emitter.Close()
		events = emitter
		logger.Info("analytics enabled", "stream", analytics.StreamName)
	}

	// Services
	replicator := service.NewReplicator(mirror, docRepo, metaRepo, logger)
	docService := service.NewDocumentService(docRepo, metaRepo, replicator, events, logger)
	resourceService := service.NewResourceService(
		docRepo,
		metaRepo,
		resourceRepo,
		blobStore,
		extractor,
		cfg.MaxMarkdownBytes,
		replicator,
		events,
		logger,
	)

	// Handlers
	docHandler := handler.NewDocumentHandler(docService, logger)
	resourceHandler := handler.NewResourceHandler(resourceService, logger)
	storageHandler := handler.NewStorageHandler(blobStore, logger)
	adminHandler := handler.NewAdminHandler(docService, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health)

	// Document routes
	mux.HandleFunc("GET /api/documents", docHandler.List)
	mux.HandleFunc("POST /api/documents", docHandler.Create)
	mux.HandleFunc("PUT /api/documents", docHandler.Update)
	mux.HandleFunc("DELETE /api/documents", docHandler.Delete)
	mux.HandleFunc("GET /api/documents/{id}", docHandler.Get)
	mux.HandleFunc("PUT /api/documents/{id}/last-opened", docHandler.TouchLastOpened)

	// Folder routes (folders live inside the document row)
	mux.HandleFunc("POST /api/documents/{id}/folders", docHandler.AddFolder)
	mux.HandleFunc("POST /api/documents/{id}/folders/rename", docHandler.RenameFolder)
	mux.HandleFunc("DELETE /api/documents/{id}/folders", docHandler.DeleteFolder)

	// Tag routes
	mux.HandleFunc("POST /api/documents/{id}/tags", docHandler.AddTag)
	mux.HandleFunc("DELETE /api/documents/{id}/tags", docHandler.RemoveTag)

	// Resource routes
	mux.HandleFunc("POST /api/resources", resourceHandler.Upload)
	mux.HandleFunc("PUT /api/resources/move", resourceHandler.Move) // Must come before {id} route
	mux.HandleFunc("GET /api/resources/check/{hash}", resourceHandler.CheckHash)
	mux.HandleFunc("GET /api/resources/{id}", resourceHandler.Get)
	mux.HandleFunc("PUT /api/resources/{id}", resourceHandler.Update)
	mux.HandleFunc("DELETE /api/resources/{id}", resourceHandler.Delete)
	mux.HandleFunc("PUT /api/resources/{id}/name", resourceHandler.Rename)
	mux.HandleFunc("PUT /api/resources/{id}/last-opened", resourceHandler.TouchLastOpened)
	mux.HandleFunc("GET /api/resources/{id}/notes", resourceHandler.GetNotes)
	mux.HandleFunc("PUT /api/resources/{id}/notes", resourceHandler.SetNotes)
	mux.HandleFunc("DELETE /api/resources/{id}/notes", resourceHandler.ClearNotes)

	// Storage routes
	mux.HandleFunc("POST /api/storage/presign", storageHandler.Presign)

	// Admin routes
	mux.HandleFunc("POST /admin/repair", adminHandler.Repair)

	// Build middleware chain
	// Order: CORS → Recovery → Auth → Routes
	var root http.Handler = mux
	if !cfg.AuthDisabled {
		verifier, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer verifier.Close()
		root = middleware.Auth(verifier)(root)
	} else {
		logger.Warn("auth disabled, requests are not verified")
	}
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
