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

	"betty/internal/auth"
	"betty/internal/config"
	"betty/internal/domain/store"
	"betty/internal/google"
	"betty/internal/handler"
	"betty/internal/llm"
	"betty/internal/llm/gemini"
	"betty/internal/middleware"
	"betty/internal/repository/memory"
	"betty/internal/repository/postgres"
	"betty/internal/service/chat"
	"betty/internal/service/document"
	"betty/internal/service/index"
	"betty/internal/service/planner"
	"betty/internal/service/profile"
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

	verifier, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create token verifier: %v", err)
	}
	defer verifier.Close()

	ctx := context.Background()

	// Storage: Postgres when configured, in-memory for local development.
	var docStore store.DocumentStore
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		pgStore := postgres.NewStore(pool, cfg.TablePrefix, logger)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		docStore = pgStore
		logger.Info("database connected", "max_conns", 25, "min_conns", 5)
	} else {
		docStore = memory.NewStore()
		logger.Warn("DATABASE_URL not set, using in-memory store (data is lost on restart)")
	}

	cache := index.NewCache(docStore, logger)

	// Generative backend; without an API key every chat turn uses the
	// deterministic fallback templates.
	var generator llm.Generator
	if cfg.GeminiAPIKey != "" {
		generator = gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GenerateTimeout, logger)
		logger.Info("generative backend configured", "model", cfg.GeminiModel)
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat runs on fallback templates only")
	}

	// Google Workspace export, optional.
	var docExporter document.DocExporter
	var calExporter planner.CalendarExporter
	creds := google.Credentials{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
	}
	if creds.Configured() {
		exporter, err := google.NewExporter(ctx, creds, logger)
		if err != nil {
			log.Fatalf("Failed to create google exporter: %v", err)
		}
		docExporter = exporter
		calExporter = exporter
		logger.Info("google export configured")
	} else {
		logger.Warn("google export disabled, document/calendar sync unavailable")
	}

	fallback, err := chat.NewFallback()
	if err != nil {
		log.Fatalf("Failed to load fallback templates: %v", err)
	}

	conversations := chat.NewConversationManager(docStore, cache, logger)
	synthesizer := chat.NewSynthesizer(
		docStore,
		conversations,
		chat.NewClassifier(),
		generator,
		fallback,
		cache,
		cfg.GenerateTimeout,
		logger,
	)
	documents := document.NewService(docStore, cache, docExporter, logger)
	plannerService := planner.NewService(docStore, cache, calExporter, logger)
	profiles := profile.NewService(docStore, cache, logger)

	logger.Info("services initialized")

	chatHandler := handler.NewChatHandler(synthesizer, conversations, logger)
	documentHandler := handler.NewDocumentHandler(documents, logger)
	plannerHandler := handler.NewPlannerHandler(plannerService, logger)
	profileHandler := handler.NewProfileHandler(profiles, logger)

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Chat routes
	mux.HandleFunc("POST /api/chat", chatHandler.ProcessMessage)
	mux.HandleFunc("GET /api/chat/history", chatHandler.History)
	mux.HandleFunc("DELETE /api/chat/history", chatHandler.ClearHistory)
	mux.HandleFunc("GET /api/chat/conversations", chatHandler.ListConversations)
	mux.HandleFunc("GET /api/chat/conversations/{id}/messages", chatHandler.GetMessages)
	mux.HandleFunc("DELETE /api/chat/conversations/{id}", chatHandler.DeleteConversation)
	mux.HandleFunc("POST /api/chat/conversations/{id}/archive", chatHandler.ArchiveConversation)
	mux.HandleFunc("GET /api/chat/summary", chatHandler.Summary)
	mux.HandleFunc("GET /api/chat/stats", chatHandler.Stats)

	// Document routes
	mux.HandleFunc("POST /api/documents", documentHandler.Create)
	mux.HandleFunc("GET /api/documents", documentHandler.List)
	mux.HandleFunc("GET /api/documents/search", documentHandler.Search) // Must come before {id} route
	mux.HandleFunc("GET /api/documents/{id}", documentHandler.Get)
	mux.HandleFunc("PATCH /api/documents/{id}", documentHandler.Update)
	mux.HandleFunc("DELETE /api/documents/{id}", documentHandler.Delete)
	mux.HandleFunc("POST /api/documents/{id}/duplicate", documentHandler.Duplicate)
	mux.HandleFunc("POST /api/documents/{id}/export", documentHandler.Export)

	// Planner routes
	mux.HandleFunc("POST /api/planner/tasks", plannerHandler.CreateTask)
	mux.HandleFunc("GET /api/planner/tasks", plannerHandler.ListTasks)
	mux.HandleFunc("GET /api/planner/tasks/today", plannerHandler.TodayTasks)
	mux.HandleFunc("GET /api/planner/tasks/overdue", plannerHandler.OverdueTasks)
	mux.HandleFunc("GET /api/planner/tasks/{id}", plannerHandler.GetTask)
	mux.HandleFunc("PATCH /api/planner/tasks/{id}", plannerHandler.UpdateTask)
	mux.HandleFunc("DELETE /api/planner/tasks/{id}", plannerHandler.DeleteTask)
	mux.HandleFunc("POST /api/planner/notes", plannerHandler.CreateNote)
	mux.HandleFunc("GET /api/planner/notes", plannerHandler.ListNotes)
	mux.HandleFunc("GET /api/planner/notes/{id}", plannerHandler.GetNote)
	mux.HandleFunc("PATCH /api/planner/notes/{id}", plannerHandler.UpdateNote)
	mux.HandleFunc("DELETE /api/planner/notes/{id}", plannerHandler.DeleteNote)
	mux.HandleFunc("POST /api/planner/events", plannerHandler.CreateEvent)
	mux.HandleFunc("GET /api/planner/events", plannerHandler.ListEvents)
	mux.HandleFunc("DELETE /api/planner/events/{id}", plannerHandler.DeleteEvent)
	mux.HandleFunc("GET /api/planner/dashboard", plannerHandler.Dashboard)

	// Profile routes
	mux.HandleFunc("GET /api/profile", profileHandler.Get)
	mux.HandleFunc("PATCH /api/profile", profileHandler.Update)
	mux.HandleFunc("DELETE /api/profile", profileHandler.DeleteAccount)
	mux.HandleFunc("GET /api/profile/stats", profileHandler.Stats)
	mux.HandleFunc("GET /api/profile/preferences", profileHandler.GetPreferences)
	mux.HandleFunc("PUT /api/profile/preferences", profileHandler.UpdatePreferences)
	mux.HandleFunc("GET /api/profile/notifications", profileHandler.GetNotifications)
	mux.HandleFunc("PUT /api/profile/notifications", profileHandler.UpdateNotifications)

	// Middleware chain, applied in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Provision → Routes
	var root http.Handler = mux
	root = middleware.Provision(profiles, logger)(root)
	root = middleware.Auth(verifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
