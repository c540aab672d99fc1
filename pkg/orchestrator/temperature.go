package orchestrator

import (
	"math"
	"time"
)

// seaTemperatureProfile is a geography's mean and seasonal swing around it,
// keyed by day-of-year (§6: "reads from a seeded profile keyed by
// day-of-year or explicit calendar date"). The Faroes profile spans 6-11C
// and the Scotland profile 6-14C; the Faroes run slightly cooler and
// with a narrower swing due to the Gulf Stream's moderating effect.
type seaTemperatureProfile struct {
	meanC       float64
	amplitude   float64
	peakYearDay int // day-of-year of the warmest reading
}

var seaTemperatureProfiles = map[string]seaTemperatureProfile{
	"Faroe Islands": {meanC: 8.5, amplitude: 2.5, peakYearDay: 240},
	"Scotland":      {meanC: 10.0, amplitude: 4.0, peakYearDay: 230},
}

var defaultSeaTemperatureProfile = seaTemperatureProfile{meanC: 9.0, amplitude: 3.0, peakYearDay: 235}

// SeasonalTemperatureProfile returns a get_temperature(date)->C closure for
// seawater stages, the Engine Deps.TemperatureProfile a real run supplies
// (test fixtures use a fixed-value stub instead). Geographies absent from
// seaTemperatureProfiles fall back to a generic North Atlantic profile
// rather than erroring, since a missing entry should degrade gracefully
// for a geography named only via CLI flags.
func SeasonalTemperatureProfile(geography string) func(time.Time) (float64, error) {
	profile, ok := seaTemperatureProfiles[geography]
	if !ok {
		profile = defaultSeaTemperatureProfile
	}
	return func(date time.Time) (float64, error) {
		yearDay := float64(date.YearDay())
		phase := 2 * math.Pi * (yearDay - float64(profile.peakYearDay)) / 365.0
		return profile.meanC + profile.amplitude*math.Cos(phase), nil
	}
}
