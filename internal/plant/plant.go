package plant

import (
	"time"

	"ai-plant-care/internal/schedule"
)

// Placement says where a plant lives; it decides how weather-sensitive the
// watering advice is.
type Placement string

const (
	PlacementIndoor  Placement = "Indoor"
	PlacementOutdoor Placement = "Outdoor"
)

// AnnotatedRegion is a labeled bounding box on the plant photo, with
// coordinates normalized to the 0-1 range.
type AnnotatedRegion struct {
	Label       string  `json:"label"`
	Description string  `json:"description"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

// Health is the latest diagnosis result for a plant.
type Health struct {
	Healthy   bool   `json:"healthy"`
	Diagnosis string `json:"diagnosis"`
}

// Plant is a single tracked plant. WateringFrequencyDays nil means no
// watering schedule exists; when set it must be positive (enforced at the
// repository boundary).
type Plant struct {
	ID         string    `json:"id"`
	CustomName string    `json:"customName"`
	CommonName string    `json:"commonName"`
	LatinName  string    `json:"latinName"`
	PhotoURL   string    `json:"photoUrl"`
	Placement  Placement `json:"placement,omitempty"`

	Notes    string  `json:"notes,omitempty"`
	CareTips string  `json:"careTips,omitempty"`
	Health   *Health `json:"health,omitempty"`

	WateringFrequencyDays *int       `json:"wateringFrequency,omitempty"`
	WateringTime          string     `json:"wateringTime,omitempty"`
	LastWatered           *time.Time `json:"lastWatered,omitempty"`

	AnnotatedRegions []AnnotatedRegion `json:"annotatedRegions,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasSchedule reports whether a watering schedule exists for the plant.
func (p *Plant) HasSchedule() bool {
	return p.WateringFrequencyDays != nil && p.LastWatered != nil
}

// NextWateringDate returns the next due date. The second return value is
// false when no schedule exists.
func (p *Plant) NextWateringDate() (time.Time, bool) {
	if !p.HasSchedule() {
		return time.Time{}, false
	}
	return schedule.NextWateringDate(*p.LastWatered, *p.WateringFrequencyDays), true
}

// IsWateringOverdue reports whether the plant is past its next due date.
func (p *Plant) IsWateringOverdue(now time.Time) bool {
	next, ok := p.NextWateringDate()
	if !ok {
		return false
	}
	return schedule.IsOverdue(now, next)
}
