package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-plant-care/internal/achievements"
	"ai-plant-care/internal/advice"
	"ai-plant-care/internal/botanist"
	"ai-plant-care/internal/config"
	"ai-plant-care/internal/metrics"
	"ai-plant-care/internal/plant"
	"ai-plant-care/internal/settings"
	"ai-plant-care/internal/shared"
	"ai-plant-care/internal/weather"
)

// App holds the application's dependencies and implements the use cases the
// API exposes.
type App struct {
	plantRepo    *plant.Repository
	settings     settings.Provider
	achievements *achievements.Store
	metricsStore *metrics.Store
	adviceEngine *advice.Engine
	botanist     *botanist.Botanist
	weatherCache *weather.Cache
	cfg          *config.Config

	now   func() time.Time
	newID func() string
}

// NewApp creates and initializes a new App instance.
func NewApp(
	plantRepo *plant.Repository,
	settingsProvider settings.Provider,
	achievementStore *achievements.Store,
	metricsStore *metrics.Store,
	adviceEngine *advice.Engine,
	b *botanist.Botanist,
	weatherCache *weather.Cache,
	cfg *config.Config,
) *App {
	return &App{
		plantRepo:    plantRepo,
		settings:     settingsProvider,
		achievements: achievementStore,
		metricsStore: metricsStore,
		adviceEngine: adviceEngine,
		botanist:     b,
		weatherCache: weatherCache,
		cfg:          cfg,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// CreatePlantInput carries the caller-supplied fields of a new plant; the
// identification flow fills in the rest.
type CreatePlantInput struct {
	CustomName string
	Placement  plant.Placement
	Notes      string
	PhotoURL   string
}

// CreateFromIdentification identifies the plant on the photo and saves it.
// The identified watering interval becomes the initial schedule when present.
func (a *App) CreateFromIdentification(ctx context.Context, image []byte, mimeType string, input CreatePlantInput) (*plant.Plant, error) {
	res, err := a.botanist.Identify(ctx, image, mimeType)
	a.recordMeta(ctx, res.Meta)
	if err != nil {
		return nil, err
	}

	p := plant.Plant{
		ID:               a.newID(),
		CustomName:       input.CustomName,
		CommonName:       res.Identification.CommonName,
		LatinName:        res.Identification.LatinName,
		PhotoURL:         input.PhotoURL,
		Placement:        input.Placement,
		Notes:            input.Notes,
		CareTips:         res.Identification.CareTips,
		AnnotatedRegions: res.Identification.AnnotatedRegions,
		CreatedAt:        a.now().UTC(),
	}
	if freq := res.Identification.WateringFrequencyDays; freq > 0 {
		p.WateringFrequencyDays = &freq
	}

	if err := a.plantRepo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save identified plant: %w", err)
	}
	a.evaluateAchievements(ctx)
	return &p, nil
}

// CreatePlant saves a manually entered plant.
func (a *App) CreatePlant(ctx context.Context, p plant.Plant) (*plant.Plant, error) {
	if p.ID == "" {
		p.ID = a.newID()
	}
	p.CreatedAt = a.now().UTC()
	if err := a.plantRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	a.evaluateAchievements(ctx)
	return &p, nil
}

// GetPlant returns one plant by id.
func (a *App) GetPlant(ctx context.Context, id string) (*plant.Plant, error) {
	return a.plantRepo.Get(ctx, id)
}

// ListPlants returns the whole garden.
func (a *App) ListPlants(ctx context.Context) ([]plant.Plant, error) {
	return a.plantRepo.List(ctx)
}

// UpdatePlant applies an edit to an existing plant. Server-owned state is
// carried forward: lastWatered only ever changes through MarkWatered or an
// accepted recalculation, and health/annotatedRegions only through their
// agents. Fields the edit leaves empty keep their stored values.
func (a *App) UpdatePlant(ctx context.Context, p plant.Plant) (*plant.Plant, error) {
	existing, err := a.plantRepo.Get(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	p.CreatedAt = existing.CreatedAt
	p.LastWatered = existing.LastWatered
	p.Health = existing.Health
	p.AnnotatedRegions = existing.AnnotatedRegions
	if p.CareTips == "" {
		p.CareTips = existing.CareTips
	}
	if p.PhotoURL == "" {
		p.PhotoURL = existing.PhotoURL
	}

	if err := a.plantRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePlant removes a plant. Achievements already earned stay unlocked.
func (a *App) DeletePlant(ctx context.Context, id string) error {
	return a.plantRepo.Delete(ctx, id)
}

// MarkWatered records a watering right now and re-evaluates achievements.
func (a *App) MarkWatered(ctx context.Context, id string) (*plant.Plant, error) {
	p, err := a.plantRepo.MarkWatered(ctx, id, a.now().UTC())
	if err != nil {
		return nil, err
	}
	a.evaluateAchievements(ctx)
	return p, nil
}

// PlantAdvice asks whether one plant should be watered now. Weather failures
// propagate to the caller; a wrong answer is worse than no answer here.
func (a *App) PlantAdvice(ctx context.Context, id string) (advice.Decision, error) {
	p, err := a.plantRepo.Get(ctx, id)
	if err != nil {
		return advice.Decision{}, err
	}

	res, err := a.adviceEngine.DecideWatering(ctx, *p, a.location(ctx))
	a.recordMeta(ctx, res.Meta)
	if err != nil {
		return advice.Decision{}, err
	}
	return res.Decision, nil
}

// PlantTip is the garden advice for a single plant.
type PlantTip struct {
	PlantID    string          `json:"plantId"`
	CustomName string          `json:"customName,omitempty"`
	CommonName string          `json:"commonName"`
	Decision   advice.Decision `json:"decision"`
}

// GardenAdvice is the proactive whole-garden report.
type GardenAdvice struct {
	Location string         `json:"location"`
	Weather  weather.Report `json:"weather"`
	Tips     []PlantTip     `json:"tips"`
}

// AdviseGarden produces watering advice for every scheduled plant. Weather
// falls back to the static mock so the garden view always renders; plants
// whose model call fails are skipped with a log line rather than failing the
// whole report.
func (a *App) AdviseGarden(ctx context.Context) (GardenAdvice, error) {
	plants, err := a.plantRepo.List(ctx)
	if err != nil {
		return GardenAdvice{}, err
	}

	location := a.location(ctx)
	report, err := weather.FetchWithPolicy(ctx, a.weatherCache, location, weather.UseMock)
	if err != nil {
		return GardenAdvice{}, err
	}

	result := GardenAdvice{Location: location, Weather: report}
	for _, p := range plants {
		if !p.HasSchedule() {
			continue
		}

		res, err := a.adviceEngine.DecideWithWeather(ctx, p, report)
		a.recordMeta(ctx, res.Meta)
		if err != nil {
			log.Printf("WARN: skipping advice for plant %s: %v", p.ID, err)
			continue
		}
		result.Tips = append(result.Tips, PlantTip{
			PlantID:    p.ID,
			CustomName: p.CustomName,
			CommonName: p.CommonName,
			Decision:   res.Decision,
		})
	}
	return result, nil
}

// RecalculateSchedule proposes a new watering interval from feedback. The
// proposal is not persisted; ApplyRecalculation does that once accepted.
func (a *App) RecalculateSchedule(ctx context.Context, id, feedback, timingDiscrepancy string) (advice.Recalculation, error) {
	p, err := a.plantRepo.Get(ctx, id)
	if err != nil {
		return advice.Recalculation{}, err
	}
	if p.WateringFrequencyDays == nil {
		return advice.Recalculation{}, plant.ErrInvalidFrequency
	}

	res, err := a.adviceEngine.Recalculate(ctx, advice.RecalcRequest{
		CommonName:           p.CommonName,
		CurrentFrequencyDays: *p.WateringFrequencyDays,
		Feedback:             feedback,
		TimingDiscrepancy:    timingDiscrepancy,
		EnvironmentNotes:     p.Notes,
		Location:             a.location(ctx),
	})
	a.recordMeta(ctx, res.Meta)
	if err != nil {
		return advice.Recalculation{}, err
	}
	return res.Recalculation, nil
}

// ApplyRecalculation persists an accepted schedule proposal.
func (a *App) ApplyRecalculation(ctx context.Context, id string, newFrequencyDays int) (*plant.Plant, error) {
	if newFrequencyDays < 1 {
		return nil, plant.ErrInvalidFrequency
	}
	p, err := a.plantRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.WateringFrequencyDays = &newFrequencyDays
	if err := a.plantRepo.Save(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// DiagnosePlant assesses plant health from a photo and stores the result on
// the plant.
func (a *App) DiagnosePlant(ctx context.Context, id string, image []byte, mimeType string) (*plant.Plant, error) {
	p, err := a.plantRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := a.botanist.Diagnose(ctx, image, mimeType, p.CommonName)
	a.recordMeta(ctx, res.Meta)
	if err != nil {
		return nil, err
	}

	p.Health = &plant.Health{Healthy: res.Diagnosis.Healthy, Diagnosis: res.Diagnosis.Diagnosis}
	if err := a.plantRepo.Save(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// Chat answers a free-form question grounded in the owner's garden.
func (a *App) Chat(ctx context.Context, question string) (string, error) {
	plants, err := a.plantRepo.List(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, p := range plants {
		name := p.CommonName
		if p.CustomName != "" {
			name = fmt.Sprintf("%s (%s)", p.CustomName, p.CommonName)
		}
		sb.WriteString("- " + name)
		if p.LastWatered != nil {
			sb.WriteString(", last watered " + p.LastWatered.Format("2006-01-02"))
		}
		sb.WriteString("\n")
	}

	res, err := a.botanist.Chat(ctx, question, sb.String())
	a.recordMeta(ctx, res.Meta)
	if err != nil {
		return "", err
	}
	return res.Reply, nil
}

// Weather returns the (cached) report for the active location.
func (a *App) Weather(ctx context.Context) (weather.Report, error) {
	return a.weatherCache.Fetch(ctx, a.location(ctx))
}

// Settings returns the stored settings.
func (a *App) Settings(ctx context.Context) (settings.Settings, error) {
	return a.settings.Load(ctx)
}

// SaveSettings persists new settings.
func (a *App) SaveSettings(ctx context.Context, s settings.Settings) error {
	return a.settings.Save(ctx, s)
}

// Achievements returns the catalog with unlock state.
func (a *App) Achievements(ctx context.Context) ([]achievements.Status, error) {
	return a.achievements.List(ctx)
}

// location resolves the active location: saved settings first, config
// default otherwise.
func (a *App) location(ctx context.Context) string {
	s, err := a.settings.Load(ctx)
	if err != nil {
		log.Printf("WARN: failed to load settings, using default location: %v", err)
		return a.cfg.DefaultLocation
	}
	if s.Location != "" {
		return s.Location
	}
	return a.cfg.DefaultLocation
}

// evaluateAchievements runs after a state mutation has committed. It is
// advisory: failures are logged, never surfaced to the caller.
func (a *App) evaluateAchievements(ctx context.Context) {
	plantCount, err := a.plantRepo.Count(ctx)
	if err != nil {
		log.Printf("WARN: failed to count plants for achievements: %v", err)
		return
	}
	speciesCount, err := a.plantRepo.CountDistinctSpecies(ctx)
	if err != nil {
		log.Printf("WARN: failed to count species for achievements: %v", err)
		return
	}
	wateringCount, err := a.plantRepo.WateringCount(ctx)
	if err != nil {
		log.Printf("WARN: failed to count waterings for achievements: %v", err)
		return
	}

	newly, err := a.achievements.Evaluate(ctx, achievements.Observations{
		PlantCount:    plantCount,
		SpeciesCount:  speciesCount,
		WateringCount: wateringCount,
	})
	if err != nil {
		log.Printf("WARN: achievement evaluation failed: %v", err)
		return
	}
	for _, ach := range newly {
		log.Printf("Achievement unlocked: %s", ach.Name)
	}
}

func (a *App) recordMeta(ctx context.Context, meta shared.AgentMeta) {
	if a.metricsStore == nil {
		return
	}
	if err := a.metricsStore.RecordMeta(ctx, meta); err != nil {
		log.Printf("WARN: failed to record agent metrics: %v", err)
	}
}
