// README: Builds the travel-time provider (backend, cache, limiter) from config.
package infra

import (
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"ridematch/internal/clock"
	"ridematch/internal/config"
	"ridematch/internal/maps"
)

// NewTravelTime wires the provider. A nil redis client selects the
// in-process cache.
func NewTravelTime(cfg config.TravelTimeConfig, rdb *redis.Client, loc *time.Location) (*maps.Provider, error) {
	var backend maps.Backend
	if cfg.Mock {
		log.Printf("[TRAVELTIME] using mock backend at %.0f km/h", cfg.MockSpeedKmh)
		backend = maps.NewMockBackend(cfg.MockSpeedKmh, nil)
	} else {
		gb, err := maps.NewGoogleBackend(cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("maps client: %w", err)
		}
		backend = gb
	}

	var cache maps.Cache
	if rdb != nil {
		cache = maps.NewRedisCache(rdb)
	} else {
		cache = maps.NewMemoryCache(clock.Real())
	}

	limiter := maps.NewLimiter(cfg.RatePerSecond, cfg.Burst, cfg.DailyQuota, clock.Real(), loc)
	return maps.NewProvider(backend, cache, limiter, maps.Options{
		MaxCoordinates: cfg.MaxCoordinates,
		Concurrency:    cfg.Concurrency,
		TTL: map[maps.Kind]time.Duration{
			maps.KindMatrix:     cfg.MatrixTTL,
			maps.KindDirections: cfg.DirectionsTTL,
			maps.KindGeocode:    cfg.GeocodeTTL,
		},
	}), nil
}
