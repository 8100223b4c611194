package handler

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/LMNRGroup/qr-je-sub001/adaptive"
	"github.com/LMNRGroup/qr-je-sub001/cache"
	"github.com/LMNRGroup/qr-je-sub001/config"
	"github.com/LMNRGroup/qr-je-sub001/security"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const (
	maxRetries         = 5
	charset            = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_"
	linkKeyPrefix      = "link:"       // link:{code} -> JSON AdaptiveLink
	scanLogKeyPrefix   = "scans:"      // scans:{code} -> list of JSON ScanRecord
	scanUsedKeyPrefix  = "scans_used:" // scans_used:{code} -> quota counter
	managementIndexKey = "management_index" // hash managementID -> code
)

var (
	ErrMaxRetriesExceeded = errors.New("failed to generate unique short code after maximum retries")
	ErrLinkNotFound       = errors.New("link not found")
)

// LinkHandler handles adaptive link operations
type LinkHandler struct {
	redis    *redis.Client
	cache    *cache.Cache
	config   config.Config
	baseURL  string
	resolver *adaptive.Resolver
	tracker  *adaptive.RedisVisitorTracker
	crawlers *security.CrawlerDetector
	now      func() time.Time // injectable clock for tests
}

// NewLinkHandler creates a new link handler with dependency injection
func NewLinkHandler(redisClient *redis.Client, cacheClient *cache.Cache, cfg config.Config, tracker *adaptive.RedisVisitorTracker) *LinkHandler {
	// Use configured base_url if provided, otherwise construct from scheme, IP, and port
	baseURL := cfg.WebServer.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s://%s:%s", cfg.WebServer.Scheme, cfg.WebServer.IP, cfg.WebServer.Port)
	}
	return &LinkHandler{
		redis:    redisClient,
		cache:    cacheClient,
		config:   cfg,
		baseURL:  baseURL,
		resolver: adaptive.NewResolver(tracker),
		tracker:  tracker,
		crawlers: security.NewCrawlerDetector(),
		now:      time.Now,
	}
}

// generateRandomString generates a cryptographically secure random string
func generateRandomString(length int) (string, error) {
	result := make([]byte, length)
	for i := range result {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// generateUniqueCode generates a unique short code with collision detection
func (h *LinkHandler) generateUniqueCode(ctx context.Context) (string, error) {
	minLen := h.config.Adaptive.CodeMinLength
	maxLen := h.config.Adaptive.CodeMaxLength
	if minLen <= 0 {
		minLen = 8
	}
	if maxLen < minLen {
		maxLen = minLen
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		// Random length between min and max
		lengthRange := maxLen - minLen + 1
		randomOffset, err := rand.Int(rand.Reader, big.NewInt(int64(lengthRange)))
		if err != nil {
			return "", err
		}
		length := minLen + int(randomOffset.Int64())

		code, err := generateRandomString(length)
		if err != nil {
			return "", err
		}

		exists, err := h.redis.Exists(ctx, linkKeyPrefix+code).Result()
		if err != nil {
			return "", err
		}

		if exists == 0 {
			return code, nil
		}

		log.Warn().
			Str("code", code).
			Int("attempt", attempt+1).
			Msg("Collision detected, retrying")
	}

	return "", ErrMaxRetriesExceeded
}

// loadLink fetches a link by short code, trying the cache before Redis.
// Returns ErrLinkNotFound when the code is unknown.
func (h *LinkHandler) loadLink(ctx context.Context, code string) (adaptive.AdaptiveLink, error) {
	if h.config.Cache.Enabled && h.cache != nil {
		if cachedData, found := h.cache.Get(code); found {
			if link, ok := cachedData.(adaptive.AdaptiveLink); ok {
				log.Debug().Str("code", code).Msg("Cache hit")
				return link, nil
			}
		}
	}

	linkData, err := h.redis.Get(ctx, linkKeyPrefix+code).Bytes()
	if err == redis.Nil {
		return adaptive.AdaptiveLink{}, ErrLinkNotFound
	} else if err != nil {
		return adaptive.AdaptiveLink{}, err
	}

	var link adaptive.AdaptiveLink
	if err := json.Unmarshal(linkData, &link); err != nil {
		return adaptive.AdaptiveLink{}, err
	}

	if h.config.Cache.Enabled && h.cache != nil {
		// Cost = approximate size of the link config (1KB estimate)
		h.cache.Set(code, link, 1024)
		log.Debug().Str("code", code).Msg("Cached link config")
	}

	return link, nil
}

// storeLink persists a link and refreshes the cache entry.
func (h *LinkHandler) storeLink(ctx context.Context, link adaptive.AdaptiveLink) error {
	linkData, err := json.Marshal(link)
	if err != nil {
		return err
	}

	if err := h.redis.Set(ctx, linkKeyPrefix+link.Code, linkData, 0).Err(); err != nil {
		return err
	}

	if h.config.Cache.Enabled && h.cache != nil {
		h.cache.Delete(link.Code)
	}
	return nil
}

// linkLocation resolves the zone governing a link's date rules.
func (h *LinkHandler) linkLocation(link adaptive.AdaptiveLink) *time.Location {
	zone := link.Timezone
	if zone == "" {
		zone = h.config.Adaptive.DefaultTimezone
	}
	if zone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", zone).Str("code", link.Code).Msg("Unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

// HealthCheck handles GET /health
// @Summary Health check
// @Description Returns service health status and Redis connectivity
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "Service is healthy"
// @Failure 503 {object} map[string]string "Service is unhealthy"
// @Router /health [get]
func (h *LinkHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.redis.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Redis health check failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "unhealthy",
			"redis":  "unavailable",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"redis":  "connected",
	})
}

// CacheMetrics handles GET /cache/metrics
// @Summary Cache performance metrics
// @Description Returns cache performance metrics including hit rate, misses, and evictions
// @Tags System
// @Produce json
// @Success 200 {object} cache.MetricsSnapshot "Cache metrics"
// @Failure 503 {object} ErrorResponse "Cache is disabled"
// @Router /cache/metrics [get]
func (h *LinkHandler) CacheMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.config.Cache.Enabled || h.cache == nil {
		SendJSONError(w, http.StatusServiceUnavailable, errors.New("cache is disabled"), "")
		return
	}

	metrics := h.cache.GetMetricsSnapshot()
	SendJSONSuccess(w, http.StatusOK, metrics)
}
