package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ledgerflow/importd/internal/api/handlers"
	"github.com/ledgerflow/importd/internal/api/middleware"
	"github.com/ledgerflow/importd/internal/archive"
	"github.com/ledgerflow/importd/internal/config"
	"github.com/ledgerflow/importd/internal/engine"
	"github.com/ledgerflow/importd/internal/jobs/inmemory"
	"github.com/ledgerflow/importd/internal/logger"
	"github.com/ledgerflow/importd/internal/notion"
	"github.com/ledgerflow/importd/internal/suggest"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if cfg.NotionToken == "" {
		log.Fatal().Msg("NOTION_TOKEN is required")
	}

	ctx := context.Background()

	// System of record
	client := notion.NewClient(cfg.NotionToken)
	directory := notion.NewDirectory(client, cfg.NotionEntitiesDBID, cfg.NotionTransactionsDBID)

	// Optional extras
	opts := engine.Options{
		Deduplicate: cfg.DeduplicationEnabled,
		BatchSize:   cfg.WriteBatchSize,
	}
	if cfg.GeminiModel != "" {
		opts.Suggester = suggest.NewGeminiSuggester(cfg.GeminiModel)
	} else {
		log.Warn().Msg("No Gemini model configured - AI suggestions disabled")
	}
	if cfg.ArchiveBucket != "" {
		opts.Archiver = archive.NewGCSArchiver(cfg.ArchiveBucket)
	}

	eng := engine.New(directory, opts, log)

	// Job infrastructure
	jobStore := inmemory.NewStore()
	progressStore := inmemory.NewProgressStore()
	jobQueue := inmemory.NewQueue(100, 2, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, eng.Handler(progressStore)); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	importsHandler := handlers.NewImportsHandler(jobQueue, progressStore, log)
	entitiesHandler := handlers.NewEntitiesHandler(directory, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/imports/process", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			importsHandler.EnqueueProcess(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/imports/execute", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			importsHandler.EnqueueExecute(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/imports/progress/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			sessionID := strings.TrimPrefix(r.URL.Path, "/api/imports/progress/")
			if sessionID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Session ID is required")
				return
			}
			importsHandler.GetProgress(w, r, sessionID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/entities", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			entitiesHandler.ListEntities(w, r)
		case http.MethodPost:
			entitiesHandler.CreateEntity(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			entitiesHandler.ListTags(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cancelWorker()
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Job queue shutdown error")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("Starting import API server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
