package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"ai-plant-care/internal/settings"
	"ai-plant-care/internal/weather"
)

// Scheduler keeps the weather cache warm for the active location.
type Scheduler struct {
	scheduler       *gocron.Scheduler
	cache           *weather.Cache
	settings        settings.Provider
	defaultLocation string
	interval        time.Duration
}

// New creates a new Scheduler. The interval should match the cache TTL so a
// refresh lands right as the cached report goes stale.
func New(cache *weather.Cache, settingsProvider settings.Provider, defaultLocation string, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler:       gocron.NewScheduler(time.UTC),
		cache:           cache,
		settings:        settingsProvider,
		defaultLocation: defaultLocation,
		interval:        interval,
	}
}

// Start schedules the periodic refresh and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 12 * time.Hour
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		location := s.location(ctx)
		log.Printf("scheduler: refreshing weather for %s", location)
		if err := s.cache.Refresh(ctx, location); err != nil {
			log.Printf("scheduler: weather refresh failed for %s: %v", location, err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) location(ctx context.Context) string {
	st, err := s.settings.Load(ctx)
	if err != nil {
		log.Printf("scheduler: failed to load settings, using default location: %v", err)
		return s.defaultLocation
	}
	if st.Location != "" {
		return st.Location
	}
	return s.defaultLocation
}
