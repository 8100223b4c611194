package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/LMNRGroup/qr-je-sub001/adaptive"
	"github.com/LMNRGroup/qr-je-sub001/model"
	"github.com/LMNRGroup/qr-je-sub001/utils"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// HandleScan handles GET /{code} - resolves an adaptive link scan
// @Summary Resolve an adaptive link
// @Description Selects the content slot for this scan (by date/time rules or first/return visitor routing), records the scan, and redirects when the slot content is a URL. Non-URL content is rendered as plain text.
// @Tags Scans
// @Produce plain
// @Param code path string true "Short code" example("abc123xy")
// @Success 302 "Redirect to slot content URL"
// @Success 200 "Slot text content"
// @Failure 404 {object} ErrorResponse "Unknown short code"
// @Failure 429 {object} ErrorResponse "Scan quota exceeded"
// @Failure 503 {object} ErrorResponse "Link misconfigured or visitor store unavailable"
// @Router /{code} [get]
func (h *LinkHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	vars := mux.Vars(r)
	code := vars["code"]

	link, err := h.loadLink(ctx, code)
	if err == ErrLinkNotFound {
		log.Warn().Str("code", code).Msg("Link not found")
		SendJSONError(w, http.StatusNotFound, ErrLinkNotFound, "")
		return
	} else if err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to load link")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to load link")
		return
	}

	userAgent := r.Header.Get("User-Agent")

	// Link-preview crawlers fetch shared links to build preview cards. Serve
	// them the default slot without touching first-visit state, the quota, or
	// the scan history.
	if isCrawler, crawlerName := h.crawlers.Detect(userAgent); isCrawler {
		h.serveCrawler(w, r, link, crawlerName)
		return
	}

	if !h.checkQuota(ctx, w, link) {
		return
	}

	ip := utils.ClientIP(r)
	fingerprint := utils.Fingerprint(ip, userAgent)
	now := h.now()
	loc := h.linkLocation(link)

	resolution, err := h.resolveWithPolicy(ctx, link, now, loc, fingerprint)
	if err != nil {
		var cfgErr *adaptive.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Error().Err(err).Str("code", code).Msg("Link cannot resolve any slot")
			SendJSONError(w, http.StatusServiceUnavailable, errors.New("content unavailable"), "This link is misconfigured")
			return
		}
		log.Error().Err(err).Str("code", code).Msg("Visitor store unavailable")
		SendJSONError(w, http.StatusServiceUnavailable, errors.New("temporarily unavailable"), "Please try again")
		return
	}

	h.recordScan(ctx, r, link, resolution, fingerprint, ip, userAgent, now)

	log.Info().
		Str("code", code).
		Str("slot_id", resolution.SlotID).
		Str("matched_rule", resolution.MatchedRule).
		Str("remote_addr", r.RemoteAddr).
		Msg("Scan resolved")

	// Adaptive destinations vary per scan, so never use a cacheable 301.
	if utils.IsHTTPURL(resolution.Content) {
		http.Redirect(w, r, resolution.Content, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, resolution.Content)
}

// serveCrawler answers a preview-crawler fetch with the link's default slot.
func (h *LinkHandler) serveCrawler(w http.ResponseWriter, r *http.Request, link adaptive.AdaptiveLink, crawlerName string) {
	resolution, err := adaptive.Fallback(link)
	if err != nil {
		log.Error().Err(err).Str("code", link.Code).Str("crawler", crawlerName).Msg("Link cannot resolve any slot")
		SendJSONError(w, http.StatusServiceUnavailable, errors.New("content unavailable"), "This link is misconfigured")
		return
	}

	log.Info().
		Str("code", link.Code).
		Str("crawler", crawlerName).
		Str("slot_id", resolution.SlotID).
		Msg("Crawler fetch served from default slot")

	if utils.IsHTTPURL(resolution.Content) {
		http.Redirect(w, r, resolution.Content, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, resolution.Content)
}

// resolveWithPolicy runs the resolver and applies the configured recovery
// policy for visitor-store failures: one retry, then either a degraded
// default-slot response (visit not recorded) or the error itself.
func (h *LinkHandler) resolveWithPolicy(ctx context.Context, link adaptive.AdaptiveLink, now time.Time, loc *time.Location, fingerprint string) (adaptive.Resolution, error) {
	resolution, err := h.resolver.Resolve(ctx, link, now, loc, fingerprint)
	if err == nil {
		return resolution, nil
	}

	var storageErr *adaptive.TransientStorageError
	if !errors.As(err, &storageErr) {
		return adaptive.Resolution{}, err
	}

	log.Warn().Err(err).Str("code", link.Code).Msg("Visitor store error, retrying once")
	resolution, err = h.resolver.Resolve(ctx, link, now, loc, fingerprint)
	if err == nil {
		return resolution, nil
	}

	if !errors.As(err, &storageErr) {
		return adaptive.Resolution{}, err
	}

	if h.config.Adaptive.DegradeOnTrackerError {
		log.Warn().Err(err).Str("code", link.Code).Msg("Visitor store still failing, degrading to default slot")
		return adaptive.Fallback(link)
	}
	return adaptive.Resolution{}, err
}

// checkQuota enforces the link's scan limit with an atomic counter. Writes
// the 429 response itself and returns false when the quota is exhausted.
func (h *LinkHandler) checkQuota(ctx context.Context, w http.ResponseWriter, link adaptive.AdaptiveLink) bool {
	if link.ScanLimit <= 0 {
		return true
	}

	used, err := h.redis.Incr(ctx, scanUsedKeyPrefix+link.Code).Result()
	if err != nil {
		log.Error().Err(err).Str("code", link.Code).Msg("Failed to increment scan counter")
		// Quota accounting must not take down resolution
		return true
	}

	if used > int64(link.ScanLimit) {
		log.Info().
			Str("code", link.Code).
			Int64("used", used).
			Int("limit", link.ScanLimit).
			Msg("Scan quota exceeded")
		SendJSONError(w, http.StatusTooManyRequests, errors.New("scan limit exceeded"), "This link has reached its scan quota")
		return false
	}
	return true
}

// recordScan appends the scan to the link's history list. Failures are
// logged, never surfaced to the visitor.
func (h *LinkHandler) recordScan(ctx context.Context, r *http.Request, link adaptive.AdaptiveLink, resolution adaptive.Resolution, fingerprint, ip, userAgent string, now time.Time) {
	record := model.ScanRecord{
		Code:        link.Code,
		SlotID:      resolution.SlotID,
		MatchedRule: resolution.MatchedRule,
		ScannedAt:   now,
		IP:          ip,
		UserAgent:   userAgent,
		Referer:     r.Header.Get("Referer"),
		Fingerprint: fingerprint,
		Country:     r.Header.Get("CF-IPCountry"), // set by the edge, opaque here
	}

	recordData, err := json.Marshal(record)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal scan record")
		return
	}
	if err := h.redis.RPush(ctx, scanLogKeyPrefix+link.Code, recordData).Err(); err != nil {
		log.Error().Err(err).Str("code", link.Code).Msg("Failed to log scan")
	}
}
