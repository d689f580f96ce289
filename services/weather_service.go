package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/natek434/gardenit/models"
	"github.com/natek434/gardenit/utils"
)

const forecastHours = 24

// WeatherService fetches short-term forecasts from Open-Meteo and
// summarizes them into a WeatherSnapshot. It implements
// interfaces.Forecaster; tests point baseURL at a local server.
type WeatherService struct {
	client  *http.Client
	baseURL string
}

func NewWeatherService(timeout time.Duration) *WeatherService {
	return &WeatherService{
		client:  &http.Client{Timeout: timeout},
		baseURL: "https://api.open-meteo.com/v1/forecast",
	}
}

type forecastResponse struct {
	Timezone string `json:"timezone"`
	Hourly   struct {
		PrecipProbability []float64 `json:"precipitation_probability"`
		WindGusts         []float64 `json:"wind_gusts_10m"`
		SoilTemperature   []float64 `json:"soil_temperature_10cm"`
	} `json:"hourly"`
	Daily struct {
		TempMin []float64 `json:"temperature_2m_min"`
		TempMax []float64 `json:"temperature_2m_max"`
	} `json:"daily"`
}

// FetchSnapshot requests an hourly forecast plus a 2-day daily forecast
// for the coordinate and derives the snapshot facts.
func (ws *WeatherService) FetchSnapshot(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	url := fmt.Sprintf(
		"%s?latitude=%.4f&longitude=%.4f&hourly=precipitation_probability,wind_gusts_10m,soil_temperature_10cm&daily=temperature_2m_min,temperature_2m_max&forecast_days=2&timezone=auto",
		ws.baseURL, lat, lon,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, utils.NewWeatherFetchError("failed to build forecast request", err)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return nil, utils.NewWeatherFetchError("forecast request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, utils.NewWeatherFetchError(
			fmt.Sprintf("forecast API returned status %d", resp.StatusCode), nil)
	}

	var forecast forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, utils.NewWeatherFetchError("failed to decode forecast response", err)
	}

	return summarizeForecast(forecast), nil
}

// summarizeForecast derives the snapshot facts from the raw series.
// Missing series yield nil fields rather than a hard failure.
func summarizeForecast(forecast forecastResponse) *models.WeatherSnapshot {
	snapshot := &models.WeatherSnapshot{Timezone: forecast.Timezone}

	if v := maxOf(forecast.Hourly.PrecipProbability, forecastHours); v != nil {
		normalized := *v / 100.0
		snapshot.PrecipProbNext24h = &normalized
	}
	snapshot.GustsNext24h = maxOf(forecast.Hourly.WindGusts, forecastHours)
	snapshot.SoilTemp10cm = meanOf(forecast.Hourly.SoilTemperature, forecastHours)

	if len(forecast.Daily.TempMin) > 0 {
		snapshot.MinTempNext24h = &forecast.Daily.TempMin[0]
	}
	if len(forecast.Daily.TempMax) > 1 {
		snapshot.MaxTempTomorrow = &forecast.Daily.TempMax[1]
	} else if len(forecast.Daily.TempMax) > 0 {
		// Tomorrow absent, fall back to today's maximum.
		snapshot.MaxTempTomorrow = &forecast.Daily.TempMax[0]
	}

	// Coarse frost heuristic carried over from the original product:
	// a flat 0.5 whenever the daily minimum reaches freezing, otherwise
	// the rain probability stands in. Not a real frost model.
	if snapshot.MinTempNext24h != nil && *snapshot.MinTempNext24h <= 0 {
		frost := 0.5
		snapshot.FrostProbability = &frost
	} else if snapshot.PrecipProbNext24h != nil {
		frost := *snapshot.PrecipProbNext24h
		snapshot.FrostProbability = &frost
	}

	return snapshot
}

func maxOf(samples []float64, limit int) *float64 {
	if len(samples) == 0 {
		return nil
	}
	if len(samples) > limit {
		samples = samples[:limit]
	}

	max := samples[0]
	for _, v := range samples[1:] {
		if v > max {
			max = v
		}
	}
	return &max
}

func meanOf(samples []float64, limit int) *float64 {
	if len(samples) == 0 {
		return nil
	}
	if len(samples) > limit {
		samples = samples[:limit]
	}

	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(len(samples))
	return &mean
}

// CachedForecaster keeps snapshots in Redis keyed by coordinate so
// users sharing a garden location reuse one fetch per sweep.
type CachedForecaster struct {
	next  *WeatherService
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedForecaster(next *WeatherService, redisClient *redis.Client, ttl time.Duration) *CachedForecaster {
	return &CachedForecaster{
		next:  next,
		redis: redisClient,
		ttl:   ttl,
	}
}

func (cf *CachedForecaster) FetchSnapshot(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	key := fmt.Sprintf("weather:snapshot:%.3f:%.3f", lat, lon)

	if cached, err := cf.redis.Get(ctx, key).Result(); err == nil {
		var snapshot models.WeatherSnapshot
		if err := json.Unmarshal([]byte(cached), &snapshot); err == nil {
			return &snapshot, nil
		}
		// Corrupt cache entry, fall through to a fresh fetch.
	}

	snapshot, err := cf.next.FetchSnapshot(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(snapshot); err == nil {
		if err := cf.redis.Set(ctx, key, payload, cf.ttl).Err(); err != nil {
			logrus.Warnf("Failed to cache weather snapshot: %v", err)
		}
	}

	return snapshot, nil
}
