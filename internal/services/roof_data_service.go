package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"roofing-estimator/internal/config"
	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/models"
	"roofing-estimator/internal/redis"
)

const (
	squareFeetPerSquareMeter = 10.7639
	defaultRoofCacheTTL      = 6 * time.Hour
)

// errNoRoofSegments означает, что Solar API ответил без данных по скатам.
var errNoRoofSegments = errors.New("solar response has no roof segment stats")

// RoofDataService получает геометрию крыши из Google Solar API (buildingInsights).
// При любой недоступности данных возвращает ответ без геометрии и со ссылкой на снимок,
// чтобы клиент мог запросить ручную оценку.
type RoofDataService struct {
	cache    jsonCache
	log      *logger.Logger
	client   *http.Client
	cfg      *config.SolarConfig
	cacheTTL time.Duration
}

// NewRoofDataService создает сервис. redisClient может быть nil.
func NewRoofDataService(redisClient *redis.Client, log *logger.Logger, cfg *config.SolarConfig) *RoofDataService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = defaultRoofCacheTTL
	}

	s := &RoofDataService{
		log:      log,
		client:   &http.Client{Timeout: timeout},
		cfg:      cfg,
		cacheTTL: ttl,
	}
	if redisClient != nil {
		s.cache = redisClient
	}
	return s
}

// GetRoofData возвращает данные крыши по координатам. Ошибок наружу не отдает.
func (s *RoofDataService) GetRoofData(ctx context.Context, lat, lng float64) *models.RoofDataResult {
	imageURL := s.StaticMapURL(lat, lng)
	logFields := map[string]interface{}{"lat": lat, "lng": lng}

	if s.cfg.APIKey == "" {
		s.log.WithFields(logFields).Warn("Solar API key is not configured")
		return fallbackRoofData(imageURL)
	}

	key := redis.CoordinateKey(redis.KeyPrefixRoof, lat, lng)
	if s.cache != nil {
		var cached models.RoofDataResult
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.WithError(err).WithField("key", key).Warn("Failed to read roof data cache")
		}
	}

	insights, err := s.fetchBuildingInsights(ctx, lat, lng)
	if err != nil {
		s.log.WithError(err).WithFields(logFields).Warn("Solar API data unavailable, falling back to manual quote")
		return fallbackRoofData(imageURL)
	}

	roof := roofGeometryFromInsights(insights)
	roof.SatelliteImageURL = imageURL
	result := &models.RoofDataResult{
		SolarAPIAvailable: true,
		RoofData:          &roof,
		SatelliteImageURL: imageURL,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("Failed to cache roof data")
		}
	}

	s.log.WithFields(map[string]interface{}{
		"lat":   lat,
		"lng":   lng,
		"area":  roof.TotalRoofArea,
		"pitch": roof.AveragePitch,
	}).Info("Roof data retrieved from Solar API")

	return result
}

// StaticMapURL строит ссылку на спутниковый снимок участка.
func (s *RoofDataService) StaticMapURL(lat, lng float64) string {
	base := s.cfg.StaticMapBaseURL
	if base == "" {
		base = "https://maps.googleapis.com/maps/api/staticmap"
	}

	params := url.Values{}
	params.Set("center", formatCoord(lat)+","+formatCoord(lng))
	params.Set("zoom", "20")
	params.Set("size", "600x400")
	params.Set("maptype", "satellite")
	if s.cfg.MapsAPIKey != "" {
		params.Set("key", s.cfg.MapsAPIKey)
	}
	return base + "?" + params.Encode()
}

func (s *RoofDataService) fetchBuildingInsights(ctx context.Context, lat, lng float64) (*buildingInsights, error) {
	base := s.cfg.BaseURL
	if base == "" {
		base = "https://solar.googleapis.com/v1"
	}

	params := url.Values{}
	params.Set("location.latitude", formatCoord(lat))
	params.Set("location.longitude", formatCoord(lng))
	params.Set("requiredQuality", "HIGH")
	params.Set("key", s.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/buildingInsights:findClosest?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call solar api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("solar api returned status %d: %s", resp.StatusCode, string(body))
	}

	var data buildingInsights
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode solar api response: %w", err)
	}

	if data.SolarPotential == nil || len(data.SolarPotential.RoofSegmentStats) == 0 {
		return nil, errNoRoofSegments
	}

	return &data, nil
}

// roofGeometryFromInsights переводит метрические данные в футы и уклон x/12.
// Solar API не дает длин кромок, поэтому они оцениваются по площади.
func roofGeometryFromInsights(data *buildingInsights) models.RoofGeometry {
	potential := data.SolarPotential

	area := RoundHalfUp(potential.WholeRoofStats.AreaMeters2 * squareFeetPerSquareMeter)

	var totalDegrees float64
	for _, seg := range potential.RoofSegmentStats {
		totalDegrees += seg.PitchDegrees
	}
	avgDegrees := totalDegrees / float64(len(potential.RoofSegmentStats))

	edges := EstimateEdgeLengths(area)

	return models.RoofGeometry{
		TotalRoofArea:     area,
		AveragePitch:      degreesToPitch(avgDegrees),
		EaveLength:        edges.EaveLength,
		RidgeValleyLength: edges.RidgeValleyLength,
		SolarAPIAvailable: true,
	}
}

// degreesToPitch переводит угол в подъем на 12 единиц пролета.
func degreesToPitch(degrees float64) int {
	return int(RoundHalfUp(math.Tan(degrees*math.Pi/180) * 12))
}

func fallbackRoofData(imageURL string) *models.RoofDataResult {
	return &models.RoofDataResult{
		SolarAPIAvailable: false,
		RoofData:          nil,
		SatelliteImageURL: imageURL,
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type buildingInsights struct {
	Name           string          `json:"name"`
	SolarPotential *solarPotential `json:"solarPotential"`
}

type solarPotential struct {
	WholeRoofStats struct {
		AreaMeters2 float64 `json:"areaMeters2"`
	} `json:"wholeRoofStats"`
	RoofSegmentStats []struct {
		PitchDegrees   float64 `json:"pitchDegrees"`
		AzimuthDegrees float64 `json:"azimuthDegrees"`
		Stats          struct {
			AreaMeters2 float64 `json:"areaMeters2"`
		} `json:"stats"`
	} `json:"roofSegmentStats"`
}
