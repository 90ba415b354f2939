package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maazq/expensebot/internal/api/handlers"
	"github.com/maazq/expensebot/internal/api/middleware"
	"github.com/maazq/expensebot/internal/archive"
	"github.com/maazq/expensebot/internal/dialog"
	"github.com/maazq/expensebot/internal/domain"
	ledgerBQ "github.com/maazq/expensebot/internal/ledger/bigquery"
	ledgerMem "github.com/maazq/expensebot/internal/ledger/memory"
	"github.com/maazq/expensebot/internal/logger"
	"github.com/maazq/expensebot/internal/oracle"
	"github.com/maazq/expensebot/internal/session"
)

func main() {
	// Parse command-line flags
	var (
		port          = flag.String("port", "8080", "HTTP server port")
		logLevel      = flag.String("log-level", "info", "log level: debug, info, warn, error")
		projectID     = flag.String("project", os.Getenv("BQ_PROJECT"), "BigQuery project id (or set BQ_PROJECT); empty runs the in-memory ledger")
		dataset       = flag.String("dataset", "finance", "BigQuery dataset holding the expense tables")
		bucket        = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for transcript archives (or set GCS_BUCKET)")
		model         = flag.String("model", oracle.DefaultModelName, "Gemini model for extraction and rendering")
		historyDepth  = flag.Int("history-depth", 3, "conversation turns passed to the model as context")
		capacity      = flag.Int("session-capacity", 10, "conversation turns retained per session")
		sessionTTL    = flag.Duration("session-ttl", 5*time.Minute, "idle time before a session is evicted")
		sweepInterval = flag.Duration("sweep-interval", time.Minute, "how often expired sessions are swept")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New("expensebot-api", *logLevel)

	ctx := context.Background()

	// Select the ledger backend
	var ledger domain.LedgerStore
	if *projectID != "" {
		repo, err := ledgerBQ.NewRepository(ctx, *projectID, *dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery ledger")
		}
		defer repo.Close()
		ledger = repo
		log.Info().Str("project", *projectID).Str("dataset", *dataset).Msg("Using BigQuery ledger")
	} else {
		ledger = ledgerMem.NewStore()
		log.Warn().Msg("No BigQuery project configured - using in-memory ledger, data is lost on restart")
	}

	// Session store, with transcript archiving when a bucket is configured
	sessionOpts := []session.Option{}
	if *bucket != "" {
		archiver, err := archive.NewGCSArchiver(ctx, *bucket, "transcripts", log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create transcript archiver")
		}
		defer archiver.Close()
		sessionOpts = append(sessionOpts, session.WithArchiver(archiver))
	} else {
		log.Warn().Msg("No GCS bucket configured - expired transcripts will be discarded")
	}
	sessions := session.NewStore(*capacity, log, sessionOpts...)

	// Gemini oracle doubles as extraction and rendering backend
	llm, err := oracle.NewClient(ctx, *model, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}

	orchestrator := dialog.NewOrchestrator(
		sessions,
		llm,
		llm,
		dialog.NewHandlers(ledger, log),
		log,
		*historyDepth,
	)

	// Sweep expired sessions in the background
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go func() {
		ticker := time.NewTicker(*sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if removed := sessions.Sweep(*sessionTTL); removed > 0 {
					log.Info().Int("removed", removed).Msg("Swept expired sessions")
				}
			}
		}
	}()

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(orchestrator, log)
	expensesHandler := handlers.NewExpensesHandler(ledger, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			webhookHandler.HandleMessage(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/expenses", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			expensesHandler.ListExpenses(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			expensesHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/healthz", handlers.Healthz)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting webhook server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelSweep()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
