package main

import (
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/playerstatements/backend/src/config"
	"github.com/username/playerstatements/backend/src/database"
	"github.com/username/playerstatements/backend/src/handlers"
	"github.com/username/playerstatements/backend/src/logger"
	"github.com/username/playerstatements/backend/src/processors"
	"github.com/username/playerstatements/backend/src/security"
	"github.com/username/playerstatements/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Player statements backend server starting...")

	fieldCipher, err := security.NewFieldCipher(config.Cfg.EncryptionKey)
	if err != nil {
		logger.L.Error("Failed to initialize field cipher", "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing batch metadata cache...", "ttl", config.Cfg.MetadataCacheTTL, "sweep", config.Cfg.MetadataCacheSweep)
	metadataCache := cache.New(config.Cfg.MetadataCacheTTL, config.Cfg.MetadataCacheSweep)
	logger.L.Info("Batch metadata cache initialized.")

	logger.L.Info("Initializing services and handlers...")
	quarterlyProcessor := processors.NewQuarterlyProcessor()
	annotationProcessor := processors.NewAnnotationProcessor()

	statementService := services.NewStatementService(quarterlyProcessor, annotationProcessor)
	batchService := services.NewBatchService(annotationProcessor, fieldCipher, metadataCache, config.Cfg.MetadataCacheTTL)
	noPlayService := services.NewNoPlayService(fieldCipher)

	uploadHandler := handlers.NewUploadHandler(statementService)
	statementHandler := handlers.NewStatementHandler(statementService)
	batchHandler := handlers.NewBatchHandler(batchService)
	noPlayHandler := handlers.NewNoPlayHandler(noPlayService)

	logger.L.Info("Configuring routes...")
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/upload/{source}", handlers.APITokenMiddleware(uploadHandler.HandleUpload))
	apiRouter.HandleFunc("POST /api/annotate", handlers.APITokenMiddleware(statementHandler.HandleAnnotate))

	apiRouter.HandleFunc("POST /api/statement-batch/init", handlers.APITokenMiddleware(batchHandler.HandleInitBatch))
	apiRouter.HandleFunc("POST /api/statement-batch/chunk", handlers.APITokenMiddleware(batchHandler.HandleSaveChunk))
	apiRouter.HandleFunc("POST /api/statement-batch/finalize", handlers.APITokenMiddleware(batchHandler.HandleFinalizeBatch))
	apiRouter.HandleFunc("GET /api/statement-batch/{id}", handlers.APITokenMiddleware(batchHandler.HandleGetBatch))
	apiRouter.HandleFunc("GET /api/statement-batches", handlers.APITokenMiddleware(batchHandler.HandleListBatches))

	apiRouter.HandleFunc("GET /api/no-play-batches", handlers.APITokenMiddleware(noPlayHandler.HandleListBatches))
	apiRouter.HandleFunc("GET /api/no-play-batches/{id}/accounts", handlers.APITokenMiddleware(noPlayHandler.HandleGetAccounts))
	apiRouter.HandleFunc("GET /api/no-play-batches/{id}/accounts/export", handlers.APITokenMiddleware(noPlayHandler.HandleExportAccounts))
	apiRouter.HandleFunc("POST /api/no-play-batches/is-email", handlers.APITokenMiddleware(noPlayHandler.HandleUpdateIsEmail))

	handlerChain := enableCORS(rateLimitMiddleware(apiRouter))

	serverAddr := ":" + config.Cfg.Port
	logger.L.Info("Server starting", "address", serverAddr)
	if err := http.ListenAndServe(serverAddr, handlerChain); err != nil {
		logger.L.Error("Server failed to start", "error", err)
		stdlog.Fatalf("Server failed to start: %v", err)
	}
}
