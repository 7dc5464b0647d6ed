package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// OpenMeteoProvider fetches current conditions and a 3-day forecast from
// Open-Meteo, geocoding the free-text location first.
type OpenMeteoProvider struct {
	geocodeBaseURL  string
	forecastBaseURL string
	httpCfg         HTTPClientConfig
	circuit         *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates a provider backed by the given HTTP client.
// Base URLs point at the public Open-Meteo geocoding and forecast APIs.
func NewOpenMeteoProvider(client *http.Client, geocodeBaseURL, forecastBaseURL string) *OpenMeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoProvider{
		geocodeBaseURL:  geocodeBaseURL,
		forecastBaseURL: forecastBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

// Fetch geocodes the location, fetches current + 3-day forecast in metric
// units, and normalizes the result. Pure fetch and transform, no side effects.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, location string) (Report, error) {
	lat, lon, err := p.geocode(ctx, location)
	if err != nil {
		return Report{}, err
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("current", "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m")
		values.Set("daily", "weather_code,temperature_2m_max")
		values.Set("temperature_unit", "celsius")
		values.Set("wind_speed_unit", "kmh")
		values.Set("forecast_days", "3")

		u := fmt.Sprintf("%s/forecast?%s", p.forecastBaseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			WeatherCode int     `json:"weather_code"`
			WindSpeed   float64 `json:"wind_speed_10m"`
		} `json:"current"`
		Daily struct {
			Time           []string  `json:"time"`
			WeatherCode    []int     `json:"weather_code"`
			TemperatureMax []float64 `json:"temperature_2m_max"`
		} `json:"daily"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Report{}, fmt.Errorf("%w: decode response: %v", ErrFetchFailed, err)
	}

	report := Report{
		Location: location,
		Current: Current{
			TemperatureC: roundInt(payload.Current.Temperature),
			Condition:    mapWeatherCode(payload.Current.WeatherCode),
			HumidityPct:  roundInt(payload.Current.Humidity),
			WindSpeedKmh: roundInt(payload.Current.WindSpeed),
		},
		FetchedAt: time.Now(),
	}

	for i, dayStr := range payload.Daily.Time {
		if i >= len(payload.Daily.WeatherCode) || i >= len(payload.Daily.TemperatureMax) {
			break
		}
		day, err := time.Parse("2006-01-02", dayStr)
		if err != nil {
			continue
		}
		report.Forecast = append(report.Forecast, ForecastDay{
			Day:          day.Weekday().String(),
			TemperatureC: roundInt(payload.Daily.TemperatureMax[i]),
			Condition:    mapWeatherCode(payload.Daily.WeatherCode[i]),
		})
	}

	return report, nil
}

func (p *OpenMeteoProvider) geocode(ctx context.Context, location string) (lat, lon float64, err error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", location)

		u := fmt.Sprintf("%s/search?%s", p.geocodeBaseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: geocode: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("%w: decode geocode response: %v", ErrFetchFailed, err)
	}

	if len(payload.Results) == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrLocationNotFound, location)
	}

	return payload.Results[0].Latitude, payload.Results[0].Longitude, nil
}

// mapWeatherCode maps WMO weather codes onto the fixed condition vocabulary
// using ordered range checks.
func mapWeatherCode(code int) Condition {
	switch {
	case code <= 1:
		return ConditionSunny
	case code <= 3:
		return ConditionPartlyCloudy
	case code >= 51 && code <= 67:
		return ConditionRain
	case code >= 95:
		return ConditionThunderstorm
	default:
		return ConditionCloudy
	}
}

func roundInt(f float64) int {
	return int(math.Round(f))
}
