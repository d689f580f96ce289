package models

// WeatherSnapshot is a compact summary of short-term forecast facts for
// one coordinate. Ephemeral - built per evaluation sweep, never stored
// in Mongo. Nil fields mean the source omitted the series.
type WeatherSnapshot struct {
	Timezone string `json:"timezone"`

	PrecipProbNext24h *float64 `json:"precipProbNext24h"` // 0..1, max over next 24 hourly samples
	MinTempNext24h    *float64 `json:"minTempNext24h"`    // today's daily minimum, Celsius
	MaxTempTomorrow   *float64 `json:"maxTempTomorrow"`   // tomorrow's daily maximum, Celsius
	FrostProbability  *float64 `json:"frostProbability"`  // 0..1, derived
	GustsNext24h      *float64 `json:"gustsNext24h"`      // km/h, max over next 24 hourly samples
	SoilTemp10cm      *float64 `json:"soilTemp10cm"`      // Celsius, mean over next 24 hourly samples
}
