package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ai-plant-care/internal/achievements"
	"ai-plant-care/internal/advice"
	"ai-plant-care/internal/botanist"
	"ai-plant-care/internal/config"
	"ai-plant-care/internal/database"
	"ai-plant-care/internal/llm"
	"ai-plant-care/internal/metrics"
	"ai-plant-care/internal/plant"
	"ai-plant-care/internal/settings"
	"ai-plant-care/internal/weather"
)

type mockGenerator struct {
	response string
	err      error
	calls    int
}

func (m *mockGenerator) GenerateContent(_ context.Context, _ string) (llm.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{Content: m.response}, nil
}

type mockVision struct {
	response string
	err      error
}

func (m *mockVision) GenerateFromImage(_ context.Context, _ string, _ string, _ []byte) (llm.ContentResponse, error) {
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{Content: m.response}, nil
}

type mockWeather struct {
	report weather.Report
	err    error
	calls  int
}

func (m *mockWeather) Fetch(_ context.Context, location string) (weather.Report, error) {
	m.calls++
	if m.err != nil {
		return weather.Report{}, m.err
	}
	r := m.report
	r.Location = location
	return r, nil
}

type testEnv struct {
	app      *App
	gen      *mockGenerator
	vision   *mockVision
	provider *mockWeather
	repo     *plant.Repository
}

func newTestApp(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gen := &mockGenerator{}
	vision := &mockVision{}
	provider := &mockWeather{report: weather.Mock("Lisbon")}

	repo := plant.NewRepository(db.SQL)
	cache := weather.NewCache(provider, 12*time.Hour)

	a := NewApp(
		repo,
		settings.NewStoreProvider(db.SQL),
		achievements.NewStore(db.SQL, achievements.Catalog),
		metrics.NewStore(db.SQL),
		advice.NewEngine(gen, cache),
		botanist.New(gen, vision),
		cache,
		&config.Config{DefaultLocation: "Lisbon"},
	)
	return &testEnv{app: a, gen: gen, vision: vision, provider: provider, repo: repo}
}

func TestCreateFromIdentification(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t)
	env.vision.response = `{
		"common_name": "Monstera",
		"latin_name": "Monstera deliciosa",
		"care_tips": "Bright indirect light.",
		"watering_frequency_days": 7
	}`

	p, err := env.app.CreateFromIdentification(ctx, []byte("photo"), "image/jpeg", CreatePlantInput{
		CustomName: "Momo",
		Placement:  plant.PlacementIndoor,
	})
	if err != nil {
		t.Fatalf("CreateFromIdentification failed: %v", err)
	}
	if p.ID == "" {
		t.Error("Expected generated plant ID")
	}
	if p.CommonName != "Monstera" || p.CustomName != "Momo" {
		t.Errorf("Unexpected plant: %+v", p)
	}
	if p.WateringFrequencyDays == nil || *p.WateringFrequencyDays != 7 {
		t.Error("Expected identified 7-day schedule")
	}

	// First plant unlocks First Sprout.
	statuses, err := env.app.Achievements(ctx)
	if err != nil {
		t.Fatalf("Achievements failed: %v", err)
	}
	for _, s := range statuses {
		if s.ID == "first-sprout" && !s.Unlocked {
			t.Error("First Sprout not unlocked after first plant")
		}
	}
}

func TestMarkWateredUpdatesSchedule(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t)

	freq := 7
	created, err := env.app.CreatePlant(ctx, plant.Plant{
		CommonName:            "Snake Plant",
		WateringFrequencyDays: &freq,
	})
	if err != nil {
		t.Fatalf("CreatePlant failed: %v", err)
	}

	watered, err := env.app.MarkWatered(ctx, created.ID)
	if err != nil {
		t.Fatalf("MarkWatered failed: %v", err)
	}
	if watered.LastWatered == nil {
		t.Fatal("Expected LastWatered to be set")
	}
	next, ok := watered.NextWateringDate()
	if !ok {
		t.Fatal("Expected a next watering date")
	}
	if want := watered.LastWatered.AddDate(0, 0, 7); !next.Equal(want) {
		t.Errorf("Expected next watering %v, got %v", want, next)
	}
}

func TestUpdatePlantKeepsServerOwnedState(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t)
	env.vision.response = `{"healthy": false, "diagnosis": "Brown tips from dry air."}`

	freq := 7
	created, err := env.app.CreatePlant(ctx, plant.Plant{
		CommonName:            "Monstera",
		WateringFrequencyDays: &freq,
		CareTips:              "Bright indirect light.",
		AnnotatedRegions: []plant.AnnotatedRegion{
			{Label: "Fenestrated leaf", X: 0.1, Y: 0.2, Width: 0.3, Height: 0.25},
		},
	})
	if err != nil {
		t.Fatalf("CreatePlant failed: %v", err)
	}
	if _, err := env.app.MarkWatered(ctx, created.ID); err != nil {
		t.Fatalf("MarkWatered failed: %v", err)
	}
	if _, err := env.app.DiagnosePlant(ctx, created.ID, []byte("photo"), "image/jpeg"); err != nil {
		t.Fatalf("DiagnosePlant failed: %v", err)
	}

	// An ordinary edit touches only the caller's fields.
	newFreq := 5
	updated, err := env.app.UpdatePlant(ctx, plant.Plant{
		ID:                    created.ID,
		CommonName:            "Monstera",
		CustomName:            "Momo",
		Notes:                 "moved to the kitchen",
		WateringFrequencyDays: &newFreq,
	})
	if err != nil {
		t.Fatalf("UpdatePlant failed: %v", err)
	}
	if updated.CustomName != "Momo" || *updated.WateringFrequencyDays != 5 {
		t.Errorf("Edit not applied: %+v", updated)
	}

	stored, err := env.app.GetPlant(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPlant failed: %v", err)
	}
	if stored.LastWatered == nil {
		t.Error("Edit erased lastWatered")
	}
	if stored.Health == nil || stored.Health.Diagnosis == "" {
		t.Error("Edit erased health diagnosis")
	}
	if len(stored.AnnotatedRegions) != 1 {
		t.Error("Edit erased annotated regions")
	}
	if stored.CareTips != "Bright indirect light." {
		t.Errorf("Edit erased care tips, got %q", stored.CareTips)
	}
}

func TestPlantAdvicePropagatesWeatherFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t)
	env.provider.err = weather.ErrFetchFailed

	freq := 2
	lastWatered := time.Now().AddDate(0, 0, -10)
	created, err := env.app.CreatePlant(ctx, plant.Plant{
		CommonName:            "Fern",
		WateringFrequencyDays: &freq,
		LastWatered:           &lastWatered,
	})
	if err != nil {
		t.Fatalf("CreatePlant failed: %v", err)
	}

	_, err = env.app.PlantAdvice(ctx, created.ID)
	if !errors.Is(err, weather.ErrFetchFailed) {
		t.Fatalf("Expected weather failure to propagate, got %v", err)
	}
	if env.gen.calls != 0 {
		t.Error("Generator called despite weather failure")
	}
}

func TestAdviseGardenFallsBackToMock(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t)
	env.provider.err = weather.ErrFetchFailed
	env.gen.response = `{"decision": "Yes", "reason": "Soil is dry."}`

	freq := 2
	lastWatered := time.Now().AddDate(0, 0, -10)
	if _, err := env.app.CreatePlant(ctx, plant.Plant{
		CommonName:            "Fern",
		WateringFrequencyDays: &freq,
		LastWatered:           &lastWatered,
	}); err != nil {
		t.Fatalf("CreatePlant failed: %v", err)
	}
	// Unscheduled plants never appear in the garden report.
	if _, err := env.app.CreatePlant(ctx, plant.Plant{CommonName: "Cactus"}); err != nil {
		t.Fatalf("CreatePlant failed: %v", err)
	}

	report, err := env.app.AdviseGarden(ctx)
	if err != nil {
		t.Fatalf("AdviseGarden failed: %v", err)
	}
	if len(report.Tips) != 1 {
		t.Fatalf("Expected 1 tip, got %d", len(report.Tips))
	}
	if report.Tips[0].Decision.ShouldWater != advice.VerdictYes {
		t.Errorf("Expected Yes, got %s", report.Tips[0].Decision.ShouldWater)
	}
	// Mock weather stood in for the failed fetch.
	if report.Weather.Current.Condition != weather.ConditionSunny {
		t.Errorf("Expected mock weather, got %+v", report.Weather.Current)
	}
}

func TestRecalculateAndApply(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t)
	env.gen.response = `{"new_frequency_days": 5, "reasoning": "Soil dries out early."}`

	freq := 7
	created, err := env.app.CreatePlant(ctx, plant.Plant{
		CommonName:            "Monstera",
		WateringFrequencyDays: &freq,
	})
	if err != nil {
		t.Fatalf("CreatePlant failed: %v", err)
	}

	recalc, err := env.app.RecalculateSchedule(ctx, created.ID, "soil was bone dry", "early")
	if err != nil {
		t.Fatalf("RecalculateSchedule failed: %v", err)
	}
	if recalc.NewFrequencyDays != 5 {
		t.Fatalf("Expected 5 days, got %d", recalc.NewFrequencyDays)
	}

	// The proposal alone changes nothing.
	stored, err := env.app.GetPlant(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPlant failed: %v", err)
	}
	if *stored.WateringFrequencyDays != 7 {
		t.Errorf("Proposal persisted without acceptance: %d", *stored.WateringFrequencyDays)
	}

	updated, err := env.app.ApplyRecalculation(ctx, created.ID, recalc.NewFrequencyDays)
	if err != nil {
		t.Fatalf("ApplyRecalculation failed: %v", err)
	}
	if *updated.WateringFrequencyDays != 5 {
		t.Errorf("Expected persisted 5 days, got %d", *updated.WateringFrequencyDays)
	}
}

func TestDiagnosePersistsHealth(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t)
	env.vision.response = `{"healthy": false, "diagnosis": "Overwatered; let the soil dry out."}`

	created, err := env.app.CreatePlant(ctx, plant.Plant{CommonName: "Calathea"})
	if err != nil {
		t.Fatalf("CreatePlant failed: %v", err)
	}

	diagnosed, err := env.app.DiagnosePlant(ctx, created.ID, []byte("photo"), "image/jpeg")
	if err != nil {
		t.Fatalf("DiagnosePlant failed: %v", err)
	}
	if diagnosed.Health == nil || diagnosed.Health.Healthy {
		t.Fatalf("Expected unhealthy diagnosis, got %+v", diagnosed.Health)
	}

	stored, err := env.app.GetPlant(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPlant failed: %v", err)
	}
	if stored.Health == nil || stored.Health.Diagnosis == "" {
		t.Error("Diagnosis not persisted")
	}
}

func TestLocationPrefersSavedSettings(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t)

	if err := env.app.SaveSettings(ctx, settings.Settings{Theme: "light", Timezone: "UTC", Location: "Porto"}); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	report, err := env.app.Weather(ctx)
	if err != nil {
		t.Fatalf("Weather failed: %v", err)
	}
	if report.Location != "Porto" {
		t.Errorf("Expected saved location Porto, got %s", report.Location)
	}
}
