package weather

import (
	"context"
	"errors"
	"time"
)

// Condition is the fixed vocabulary of weather conditions the advice
// pipeline understands. Provider-specific codes are mapped onto it.
type Condition string

const (
	ConditionSunny        Condition = "Sunny"
	ConditionPartlyCloudy Condition = "Partly cloudy"
	ConditionCloudy       Condition = "Cloudy"
	ConditionRain         Condition = "Rain"
	ConditionThunderstorm Condition = "Thunderstorms"
)

var (
	// ErrLocationNotFound is returned when geocoding yields no results.
	ErrLocationNotFound = errors.New("location not found")
	// ErrFetchFailed is returned when the weather service responds with a
	// non-2xx status or the request fails outright.
	ErrFetchFailed = errors.New("weather fetch failed")
)

// Current is the current conditions at a location. Numeric fields are
// rounded to integers; units are fixed to metric.
type Current struct {
	TemperatureC int       `json:"temperatureC"`
	Condition    Condition `json:"condition"`
	HumidityPct  int       `json:"humidityPercent"`
	WindSpeedKmh int       `json:"windSpeedKmh"`
}

// ForecastDay is a single day of the short-range forecast.
type ForecastDay struct {
	Day          string    `json:"day"` // weekday name
	TemperatureC int       `json:"temperatureC"`
	Condition    Condition `json:"condition"`
}

// Report bundles current conditions with the 3-day forecast, ordered
// chronologically starting today.
type Report struct {
	Location  string        `json:"location"`
	Current   Current       `json:"current"`
	Forecast  []ForecastDay `json:"forecast"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// Provider abstracts a weather data source.
type Provider interface {
	Fetch(ctx context.Context, location string) (Report, error)
}

// FallbackPolicy states what a call site does when the fetch fails.
// The proactive multi-plant advice path degrades to mock data so the user
// always sees some advice; the single-plant path propagates the failure so
// the caller can show an explicit error instead of silently wrong advice.
type FallbackPolicy int

const (
	Propagate FallbackPolicy = iota
	UseMock
)

// FetchWithPolicy fetches a report from p, applying the call site's
// fallback policy on failure.
func FetchWithPolicy(ctx context.Context, p Provider, location string, policy FallbackPolicy) (Report, error) {
	report, err := p.Fetch(ctx, location)
	if err != nil {
		if policy == UseMock {
			return Mock(location), nil
		}
		return Report{}, err
	}
	return report, nil
}
