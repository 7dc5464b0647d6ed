package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMapWeatherCode(t *testing.T) {
	cases := []struct {
		code     int
		expected Condition
	}{
		{0, ConditionSunny},
		{1, ConditionSunny},
		{2, ConditionPartlyCloudy},
		{3, ConditionPartlyCloudy},
		{45, ConditionCloudy},
		{51, ConditionRain},
		{61, ConditionRain},
		{67, ConditionRain},
		{80, ConditionCloudy},
		{95, ConditionThunderstorm},
		{96, ConditionThunderstorm},
	}

	for _, tc := range cases {
		if got := mapWeatherCode(tc.code); got != tc.expected {
			t.Errorf("mapWeatherCode(%d) = %q, expected %q", tc.code, got, tc.expected)
		}
	}
}

// newTestServer serves both the geocoding and forecast endpoints from a
// single handler so the provider can be pointed at one base URL.
func newTestServer(t *testing.T, results int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search"):
			payload := map[string]any{"results": []map[string]float64{}}
			if results > 0 {
				payload["results"] = []map[string]float64{{"latitude": 38.72, "longitude": -9.13}}
			}
			json.NewEncoder(w).Encode(payload)
		case strings.HasPrefix(r.URL.Path, "/forecast"):
			json.NewEncoder(w).Encode(map[string]any{
				"current": map[string]any{
					"temperature_2m":       21.6,
					"relative_humidity_2m": 64.2,
					"weather_code":         2,
					"wind_speed_10m":       12.4,
				},
				"daily": map[string]any{
					"time":               []string{"2024-03-01", "2024-03-02", "2024-03-03"},
					"weather_code":       []int{0, 61, 96},
					"temperature_2m_max": []float64{24.4, 17.8, 16.1},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOpenMeteoFetch(t *testing.T) {
	srv := newTestServer(t, 1)
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL, srv.URL)

	report, err := p.Fetch(context.Background(), "Lisbon")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if report.Current.TemperatureC != 22 {
		t.Errorf("Expected rounded temperature 22, got %d", report.Current.TemperatureC)
	}
	if report.Current.Condition != ConditionPartlyCloudy {
		t.Errorf("Expected condition %q, got %q", ConditionPartlyCloudy, report.Current.Condition)
	}
	if report.Current.HumidityPct != 64 {
		t.Errorf("Expected rounded humidity 64, got %d", report.Current.HumidityPct)
	}
	if len(report.Forecast) != 3 {
		t.Fatalf("Expected 3 forecast days, got %d", len(report.Forecast))
	}
	if report.Forecast[0].Day != "Friday" {
		t.Errorf("Expected first forecast day 'Friday', got %q", report.Forecast[0].Day)
	}
	if report.Forecast[1].Condition != ConditionRain {
		t.Errorf("Expected rain on day two, got %q", report.Forecast[1].Condition)
	}
	if report.Forecast[2].Condition != ConditionThunderstorm {
		t.Errorf("Expected thunderstorms on day three, got %q", report.Forecast[2].Condition)
	}
}

func TestOpenMeteoLocationNotFound(t *testing.T) {
	srv := newTestServer(t, 0)
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL, srv.URL)

	_, err := p.Fetch(context.Background(), "Nowhereville")
	if err == nil {
		t.Fatal("Expected an error for an unknown location, got nil")
	}
	if !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("Expected ErrLocationNotFound, got %v", err)
	}
}

func TestFetchWithPolicyUsesMock(t *testing.T) {
	failing := providerFunc(func(ctx context.Context, location string) (Report, error) {
		return Report{}, ErrFetchFailed
	})

	report, err := FetchWithPolicy(context.Background(), failing, "Lisbon", UseMock)
	if err != nil {
		t.Fatalf("Expected mock fallback, got error: %v", err)
	}
	if report.Current.TemperatureC != 22 || report.Current.Condition != ConditionSunny {
		t.Errorf("Expected static mock data, got %+v", report.Current)
	}

	_, err = FetchWithPolicy(context.Background(), failing, "Lisbon", Propagate)
	if err == nil {
		t.Fatal("Expected error to propagate under Propagate policy")
	}
}

type providerFunc func(ctx context.Context, location string) (Report, error)

func (f providerFunc) Fetch(ctx context.Context, location string) (Report, error) {
	return f(ctx, location)
}
