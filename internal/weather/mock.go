package weather

import "time"

// Mock returns a plausible static report used when the live fetch fails and
// the call site opted into graceful degradation. The free public weather
// dependency is flaky enough that the proactive advice path prefers this
// over surfacing an error for every plant.
func Mock(location string) Report {
	now := time.Now()
	return Report{
		Location: location,
		Current: Current{
			TemperatureC: 22,
			Condition:    ConditionSunny,
			HumidityPct:  55,
			WindSpeedKmh: 10,
		},
		Forecast: []ForecastDay{
			{Day: now.AddDate(0, 0, 1).Weekday().String(), TemperatureC: 23, Condition: ConditionSunny},
			{Day: now.AddDate(0, 0, 2).Weekday().String(), TemperatureC: 21, Condition: ConditionPartlyCloudy},
			{Day: now.AddDate(0, 0, 3).Weekday().String(), TemperatureC: 22, Condition: ConditionSunny},
		},
		FetchedAt: now,
	}
}
