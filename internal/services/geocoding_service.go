package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"roofing-estimator/internal/apperror"
	"roofing-estimator/internal/config"
	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/models"
	"roofing-estimator/internal/redis"
)

const geocodeCacheTTL = 24 * time.Hour

// errGeocodeNoResult означает, что провайдер ответил, но адрес не найден.
var errGeocodeNoResult = errors.New("no geocode result")

// jsonCache описывает кеш с JSON-сериализацией (реализуется redis.Client).
type jsonCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// GeocodingService переводит адрес в координаты с кешированием в Redis.
// Провайдер offline дает детерминированные координаты без внешних API, google ходит в Geocoding API.
type GeocodingService struct {
	cache  jsonCache
	log    *logger.Logger
	client *http.Client
	cfg    *config.GeocodingConfig
}

// NewGeocodingService создает сервис геокодирования. redisClient может быть nil.
func NewGeocodingService(redisClient *redis.Client, log *logger.Logger, cfg *config.GeocodingConfig) *GeocodingService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &GeocodingService{
		log:    log,
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
	}
	if redisClient != nil {
		s.cache = redisClient
	}
	return s
}

// Geocode возвращает координаты и нормализованный адрес.
func (s *GeocodingService) Geocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperror.Validation("address is required", nil)
	}

	key := redis.GenerateKey(redis.KeyPrefixGeocode, hashKey(strings.ToLower(address)))

	if s.cache != nil {
		var cached models.GeocodeResult
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.WithError(err).WithField("key", key).Warn("Failed to read geocode cache")
		}
	}

	var (
		result *models.GeocodeResult
		err    error
	)
	if s.useGoogle() {
		result, err = s.googleGeocode(ctx, address)
		if err != nil {
			if errors.Is(err, errGeocodeNoResult) {
				return nil, apperror.NotFound("Could not geocode address", err)
			}
			s.log.WithError(err).WithField("address", address).Error("Google geocode failed")
			return nil, apperror.Unavailable("Geocoding service is unavailable", err)
		}
	} else {
		lat, lng := hashToCoordinates(address)
		result = &models.GeocodeResult{Lat: lat, Lng: lng, FormattedAddress: address}
	}

	// Пишем в кеш (best effort)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, geocodeCacheTTL); err != nil {
			s.log.WithError(err).WithField("address", address).Warn("Failed to cache geocode result")
		}
	}

	return result, nil
}

func (s *GeocodingService) useGoogle() bool {
	return strings.EqualFold(s.cfg.Provider, "google") && s.cfg.GoogleAPIKey != ""
}

// googleGeocode вызывает Google Geocoding API.
func (s *GeocodingService) googleGeocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", s.cfg.GoogleAPIKey)

	endpoint := s.cfg.GoogleBaseURL
	if endpoint == "" {
		endpoint = "https://maps.googleapis.com/maps/api/geocode/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call google geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("google geocode returned status %d: %s", resp.StatusCode, string(body))
	}

	var data googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode google geocode response: %w", err)
	}

	if data.Status != "OK" || len(data.Results) == 0 {
		return nil, fmt.Errorf("status %q: %w", data.Status, errGeocodeNoResult)
	}

	first := data.Results[0]
	return &models.GeocodeResult{
		Lat:              first.Geometry.Location.Lat,
		Lng:              first.Geometry.Location.Lng,
		FormattedAddress: first.FormattedAddress,
	}, nil
}

type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// hashToCoordinates генерирует координаты из адреса.
func hashToCoordinates(address string) (float64, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(address))
	val := h.Sum64()

	lat := -90 + float64(val%18000)/100.0
	lng := -180 + float64((val/18000)%36000)/100.0

	return lat, lng
}

// hashKey делает короткий ключ для адреса.
func hashKey(address string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(address))
	return fmt.Sprintf("%x", h.Sum64())
}
