package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/delivery/http"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/engine"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/repository/postgres"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/repository/sqlite"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/service"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/tables"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := loadConfig()

	// Reference tables are parsed once and shared read-only
	tbl, err := loadTables(cfg.TablesDir)
	if err != nil {
		log.Fatalf("Failed to load reference tables: %v", err)
	}

	policy, err := engine.ParseLanePolicy(cfg.LanePolicy)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Lane policy: %s", policy)

	// Dependency Injection: Repositories
	repo, closeRepo := openRepository(cfg)
	defer closeRepo()

	// Dependency Injection: Services
	trafficSvc := service.NewTrafficService(engine.New(tbl, engine.WithLanePolicy(policy)))
	analysisSvc := service.NewAnalysisService(trafficSvc, repo)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "Expressway Capacity API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Routes
	http.SetupRoutes(app, analysisSvc, trafficSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Env)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		analysisSvc.WaitBackground()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server error: %v", err)
	}
	log.Println("Server exited gracefully")
}

type Config struct {
	DatabaseURL  string
	SQLitePath   string
	TablesDir    string
	LanePolicy   string
	AllowOrigins string
	Port         string
	Env          string
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SQLitePath:   getEnv("SQLITE_PATH", ""),
		TablesDir:    getEnv("TABLES_DIR", ""),
		LanePolicy:   getEnv("LANE_POLICY", string(engine.LanePolicyFallback)),
		AllowOrigins: getEnv("CORS_ORIGINS", "*"),
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("GO_ENV", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadTables(dir string) (*tables.Tables, error) {
	if dir == "" {
		return tables.Default()
	}
	log.Printf("Loading reference tables from %s", dir)
	return tables.Load(os.DirFS(dir))
}

// openRepository prefers PostgreSQL, then SQLite, then an in-memory store
func openRepository(cfg *Config) (service.AnalysisRepository, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(ctx)
		}
		if err == nil {
			repo := postgres.NewPostgresRepository(pool)
			if err = repo.EnsureSchema(ctx); err == nil {
				log.Println("Connected to PostgreSQL")
				return repo, pool.Close
			}
		}
		if pool != nil {
			pool.Close()
		}
		log.Printf("Warning: Could not connect to database: %v", err)
	}

	if cfg.SQLitePath != "" {
		repo, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err == nil {
			return repo, func() {
				if err := repo.Close(); err != nil {
					log.Printf("Failed to close SQLite: %v", err)
				}
			}
		}
		log.Printf("Warning: Could not open SQLite database: %v", err)
	}

	log.Println("Running with in-memory analysis history only")
	return postgres.NewMockRepository(), func() {}
}
