package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"plantfinder/api/internal/config"
	"plantfinder/api/internal/geo"
	"plantfinder/api/internal/models"
)

// ErrLocationNotDetected is returned when neither geolocation provider could
// resolve the client IP to a known US state.
var ErrLocationNotDetected = errors.New("unable to detect location from IP address")

// IGeoService defines the interface for resolving a client IP to a US state.
type IGeoService interface {
	DetectLocation(ctx context.Context, clientIP string) (*models.Geolocation, error)
}

// geoService implements IGeoService. It proxies two public IP geolocation
// providers so the browser never talks to them directly (avoids CORS and
// ad-blocker problems), caching results in Redis.
type geoService struct {
	cfg        *config.Config
	redis      *redis.Client // optional; nil disables caching
	httpClient *http.Client
}

// NewGeoService creates a new GeoService. redisClient may be nil, in which
// case lookups are never cached.
func NewGeoService(cfg *config.Config, redisClient *redis.Client) IGeoService {
	return &geoService{
		cfg:        cfg,
		redis:      redisClient,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// DetectLocation resolves the client IP via the primary provider, falling
// back to the secondary one, and maps the state name to its FIPS code.
func (s *geoService) DetectLocation(ctx context.Context, clientIP string) (*models.Geolocation, error) {
	cacheKey := "geoip:" + clientIP
	if s.redis != nil && clientIP != "" {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var loc models.Geolocation
			if err := json.Unmarshal([]byte(cached), &loc); err == nil {
				return &loc, nil
			}
		}
	}

	loc := s.fromPrimary(ctx, clientIP)
	if loc == nil {
		log.Printf("Primary geolocation provider failed for %q, trying fallback", clientIP)
		loc = s.fromFallback(ctx, clientIP)
	}
	if loc == nil {
		return nil, ErrLocationNotDetected
	}

	if s.redis != nil && clientIP != "" {
		if data, err := json.Marshal(loc); err == nil {
			if err := s.redis.Set(ctx, cacheKey, data, s.cfg.GeoCacheTTL).Err(); err != nil {
				log.Printf("Failed to cache geolocation for %q: %v", clientIP, err)
			}
		}
	}
	return loc, nil
}

// fromPrimary queries ipapi.co, which reports the state in the "region"
// field.
func (s *geoService) fromPrimary(ctx context.Context, clientIP string) *models.Geolocation {
	url := s.cfg.GeoPrimaryBaseURL + "/json/"
	if clientIP != "" {
		url = fmt.Sprintf("%s/%s/json/", s.cfg.GeoPrimaryBaseURL, clientIP)
	}

	var payload struct {
		Region string `json:"region"`
	}
	if !s.fetchJSON(ctx, url, &payload) {
		return nil
	}
	if payload.Region == "" {
		log.Println("No region in primary geolocation response")
		return nil
	}
	return locationForState(payload.Region)
}

// fromFallback queries ip-api.com, which reports the state in "regionName"
// and signals success in a "status" field.
func (s *geoService) fromFallback(ctx context.Context, clientIP string) *models.Geolocation {
	url := s.cfg.GeoFallbackBaseURL + "/json/"
	if clientIP != "" {
		url = fmt.Sprintf("%s/json/%s", s.cfg.GeoFallbackBaseURL, clientIP)
	}

	var payload struct {
		Status     string `json:"status"`
		RegionName string `json:"regionName"`
	}
	if !s.fetchJSON(ctx, url, &payload) {
		return nil
	}
	if payload.Status != "success" || payload.RegionName == "" {
		log.Println("No region in fallback geolocation response")
		return nil
	}
	return locationForState(payload.RegionName)
}

func (s *geoService) fetchJSON(ctx context.Context, url string, out interface{}) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		log.Printf("Error creating geolocation request: %v", err)
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("Error calling geolocation provider: %v", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("Geolocation provider returned status %d", resp.StatusCode)
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Printf("Error decoding geolocation response: %v", err)
		return false
	}
	return true
}

// locationForState maps a state name to its FIPS code. Non-US regions have
// no code and count as a failed detection.
func locationForState(stateName string) *models.Geolocation {
	fips, ok := geo.StateFIPS(stateName)
	if !ok {
		log.Printf("Unknown state from geolocation provider: %q", stateName)
		return nil
	}
	return &models.Geolocation{State: stateName, StateFips: fips}
}
