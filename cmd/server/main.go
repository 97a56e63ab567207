package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asofia888/self-care-guide/internal/config"
	"github.com/asofia888/self-care-guide/internal/controllers"
	"github.com/asofia888/self-care-guide/internal/middleware"
	"github.com/asofia888/self-care-guide/internal/ratelimit"
	"github.com/asofia888/self-care-guide/internal/requestlog"
	"github.com/asofia888/self-care-guide/internal/services"
	"github.com/asofia888/self-care-guide/internal/storage"
	"github.com/asofia888/self-care-guide/migrations"
)

func main() {
	cfg := config.MustLoad()
	if err := run(cfg); err != nil {
		panic(err)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// Optional shared Postgres backend ---------------
	var pool *pgxpool.Pool
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	var recorder requestlog.Recorder = requestlog.Nop{}

	if cfg.HasDatabase() {
		log.Println("Connecting to database...")
		if err := storage.MigrateFS(cfg.Database.URL, migrations.FS, "."); err != nil {
			return err
		}
		var err error
		pool, err = storage.NewPool(ctx, storage.DefaultPoolConfig(cfg.Database.URL))
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Println("Database connected successfully")

		store = ratelimit.NewPostgresStore(pool)
		recorder = requestlog.NewPostgresRecorder(pool)
	} else {
		log.Println("No DATABASE_URL set; using in-process rate limiting")
	}

	if !cfg.APIKeyConfigured() {
		log.Println("WARNING: GEMINI_API_KEY is not configured; requests will fail with a configuration error")
	}

	// Setup Services ---------------
	apiKey := cfg.APIs.GeminiAPIKey
	if !cfg.APIKeyConfigured() {
		apiKey = ""
	}
	gemini := services.NewGeminiService(apiKey, cfg.APIs.GeminiModel, !cfg.IsProduction())

	analysisLimiter := ratelimit.NewLimiter(store, "analysis", cfg.Limits.AnalysisLimit, cfg.Limits.Window)
	compendiumLimiter := ratelimit.NewLimiter(store, "compendium", cfg.Limits.CompendiumLimit, cfg.Limits.Window)

	// Setup Controllers ---------------
	analysisCtrl := controllers.NewAnalysisController(gemini, analysisLimiter, recorder, !cfg.IsProduction())
	compendiumCtrl := controllers.NewCompendiumController(gemini, compendiumLimiter, recorder, !cfg.IsProduction())
	healthCtrl := controllers.NewHealthController(pool)

	// Setup router and routes
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(controllers.MethodNotAllowed)
	r.NotFound(controllers.NotFound)

	r.Get("/healthz", healthCtrl.GetHealth)
	r.Post("/api/analysis", analysisCtrl.PostAnalysis)
	r.Post("/api/compendium", compendiumCtrl.PostCompendium)

	// Start the Server
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	log.Printf("Starting server at %s (%s)...", cfg.Server.Address, cfg.Server.Environment)
	return srv.ListenAndServe()
}
