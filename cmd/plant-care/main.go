package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"ai-plant-care/internal/advice"
	"ai-plant-care/internal/config"
	"ai-plant-care/internal/database"
	"ai-plant-care/internal/llm"
	"ai-plant-care/internal/metrics"
	"ai-plant-care/internal/plant"
	"ai-plant-care/internal/settings"
	"ai-plant-care/internal/weather"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "advise":
		if len(os.Args) < 3 {
			log.Fatal("Usage: plant-care advise <plant-id>")
		}
		runAdvise(ctx, cfg, db, os.Args[2])
	case "weather":
		location := resolveLocation(ctx, cfg, db)
		if len(os.Args) > 2 {
			location = os.Args[2]
		}
		runWeather(ctx, cfg, location)
	case "usage":
		days := argDays(30)
		runUsage(ctx, db, days)
	case "metrics-cleanup":
		days := argDays(90)
		runCleanup(ctx, db, days)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Usage: plant-care <command>

Commands:
  advise <plant-id>        Ask whether a plant should be watered now
  weather [location]       Show the current weather report
  usage [days]             Show daily token usage (default 30 days)
  metrics-cleanup [days]   Delete metrics older than N days (default 90)`)
}

func argDays(def int) int {
	if len(os.Args) > 2 {
		if d, err := strconv.Atoi(os.Args[2]); err == nil && d > 0 {
			return d
		}
		log.Fatalf("Invalid day count: %s", os.Args[2])
	}
	return def
}

func runAdvise(ctx context.Context, cfg *config.Config, db *database.DB, plantID string) {
	geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, llm.Options{Model: cfg.GeminiModel})
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer geminiClient.Close()

	p, err := plant.NewRepository(db.SQL).Get(ctx, plantID)
	if err != nil {
		log.Fatalf("Failed to load plant: %v", err)
	}

	provider := newProvider(cfg)
	engine := advice.NewEngine(geminiClient, provider)

	res, err := engine.DecideWatering(ctx, *p, resolveLocation(ctx, cfg, db))
	if err != nil {
		log.Fatalf("Advice failed: %v", err)
	}

	fmt.Printf("%s: %s\n", p.CommonName, res.Decision.ShouldWater)
	fmt.Println(res.Decision.Reason)
	if res.Decision.NewWateringTime != nil {
		fmt.Printf("Water at: %s\n", res.Decision.NewWateringTime.Format(time.RFC3339))
	}
}

func runWeather(ctx context.Context, cfg *config.Config, location string) {
	report, err := newProvider(cfg).Fetch(ctx, location)
	if err != nil {
		log.Fatalf("Weather fetch failed: %v", err)
	}

	fmt.Printf("%s: %d°C, %s, humidity %d%%, wind %d km/h\n",
		report.Location,
		report.Current.TemperatureC,
		report.Current.Condition,
		report.Current.HumidityPct,
		report.Current.WindSpeedKmh,
	)
	for _, day := range report.Forecast {
		fmt.Printf("  %-10s %d°C, %s\n", day.Day, day.TemperatureC, day.Condition)
	}
}

func runUsage(ctx context.Context, db *database.DB, days int) {
	usage, err := metrics.NewStore(db.SQL).GetDailyUsage(ctx, days)
	if err != nil {
		log.Fatalf("Failed to load usage: %v", err)
	}

	if len(usage) == 0 {
		fmt.Println("No recorded usage.")
		return
	}
	for _, u := range usage {
		fmt.Printf("%s  prompt=%d completion=%d executions=%d\n",
			u.Date, u.TotalPrompt, u.TotalCompletion, u.TotalExecution)
	}
}

func runCleanup(ctx context.Context, db *database.DB, days int) {
	deleted, err := metrics.NewStore(db.SQL).Cleanup(ctx, days)
	if err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}
	fmt.Printf("Deleted %d metric rows older than %d days.\n", deleted, days)
}

// resolveLocation matches the server's lookup order: saved settings first,
// config default otherwise.
func resolveLocation(ctx context.Context, cfg *config.Config, db *database.DB) string {
	s, err := settings.NewStoreProvider(db.SQL).Load(ctx)
	if err != nil {
		log.Printf("Warning: failed to load settings, using default location: %v", err)
		return cfg.DefaultLocation
	}
	if s.Location != "" {
		return s.Location
	}
	return cfg.DefaultLocation
}

func newProvider(cfg *config.Config) *weather.OpenMeteoProvider {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return weather.NewOpenMeteoProvider(httpClient, cfg.GeocodeBaseURL, cfg.ForecastBaseURL)
}
