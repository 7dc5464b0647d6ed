package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"ai-plant-care/internal/achievements"
	"ai-plant-care/internal/advice"
	httpapi "ai-plant-care/internal/api/http"
	"ai-plant-care/internal/app"
	"ai-plant-care/internal/botanist"
	"ai-plant-care/internal/config"
	"ai-plant-care/internal/database"
	"ai-plant-care/internal/llm"
	"ai-plant-care/internal/metrics"
	"ai-plant-care/internal/plant"
	"ai-plant-care/internal/scheduler"
	"ai-plant-care/internal/settings"
	"ai-plant-care/internal/weather"
)

func main() {
	// 1. Load configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. Initialize infrastructure
	geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, llm.Options{Model: cfg.GeminiModel})
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer geminiClient.Close()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	provider := weather.NewOpenMeteoProvider(httpClient, cfg.GeocodeBaseURL, cfg.ForecastBaseURL)
	cache := weather.NewCache(provider, cfg.WeatherCacheTTL)

	// 3. Initialize repositories and stores
	plantRepo := plant.NewRepository(db.SQL)
	settingsProvider := settings.NewStoreProvider(db.SQL)
	achievementStore := achievements.NewStore(db.SQL, achievements.Catalog)
	metricsStore := metrics.NewStore(db.SQL)

	// 4. Initialize services
	adviceEngine := advice.NewEngine(geminiClient, cache)
	plantBotanist := botanist.New(geminiClient, geminiClient)

	application := app.NewApp(
		plantRepo,
		settingsProvider,
		achievementStore,
		metricsStore,
		adviceEngine,
		plantBotanist,
		cache,
		cfg,
	)

	// 5. Background weather refresh
	sched := scheduler.New(cache, settingsProvider, cfg.DefaultLocation, cfg.WeatherCacheTTL)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// 6. HTTP server
	fa := fiber.New(fiber.Config{
		AppName:               "ai-plant-care",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		BodyLimit:             16 * 1024 * 1024, // photo uploads
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	fa.Use(logger.New())
	fa.Use(recover.New())

	fa.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "ai-plant-care",
			"system":  metrics.GetSysHealth(filepath.Dir(cfg.DatabasePath)),
		})
	})

	httpapi.RegisterRoutes(fa, application)

	go func() {
		log.Printf("Listening on port %s", cfg.Port)
		if err := fa.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// 7. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fa.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}

	log.Println("Server exiting")
}
