package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/LMNRGroup/qr-je-sub001/model"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const defaultHistoryLimit = 50

// GetScanHistory handles GET /links/{managementID}/scans
// @Summary Scan history and statistics
// @Description Returns the link's scan history with per-slot, per-rule, per-country, and per-day breakdowns. Requires the management UUID.
// @Tags Links
// @Produce json
// @Param managementID path string true "Management UUID"
// @Param limit query int false "Max scan records returned (most recent first)" default(50)
// @Param offset query int false "Records to skip from the most recent" default(0)
// @Success 200 {object} model.ScanHistoryResponse "Scan history"
// @Failure 404 {object} ErrorResponse "Unknown management ID"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /links/{managementID}/scans [get]
func (h *LinkHandler) GetScanHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	vars := mux.Vars(r)
	managementID := vars["managementID"]

	if managementID == "" {
		SendJSONError(w, http.StatusBadRequest, errors.New("missing managementID"), "Management ID is required")
		return
	}

	link, err := h.lookupByManagementID(ctx, managementID)
	if err != nil {
		log.Warn().Err(err).Str("management_id", managementID).Msg("Management ID not found")
		SendJSONError(w, http.StatusNotFound, ErrLinkNotFound, "Invalid management ID")
		return
	}

	limit := defaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	entries, err := h.redis.LRange(ctx, scanLogKeyPrefix+link.Code, 0, -1).Result()
	if err != nil {
		log.Error().Err(err).Str("code", link.Code).Msg("Failed to fetch scan log")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to fetch scan history")
		return
	}

	stats := model.ScanStats{
		ScansBySlot:    make(map[string]int64),
		ScansByRule:    make(map[string]int64),
		ScansByCountry: make(map[string]int64),
		ScanLimit:      link.ScanLimit,
	}
	visitors := make(map[string]bool)
	scansByDate := make(map[string]int64)
	records := make([]model.ScanRecord, 0, len(entries))

	for _, entry := range entries {
		var record model.ScanRecord
		if err := json.Unmarshal([]byte(entry), &record); err != nil {
			log.Warn().Err(err).Str("code", link.Code).Msg("Skipping malformed scan record")
			continue
		}
		records = append(records, record)

		stats.TotalScans++
		stats.ScansBySlot[record.SlotID]++
		stats.ScansByRule[record.MatchedRule]++
		if record.Country != "" {
			stats.ScansByCountry[record.Country]++
		}
		if record.Fingerprint != "" {
			visitors[record.Fingerprint] = true
		}
		scansByDate[record.ScannedAt.Format("2006-01-02")]++
		stats.LastScannedAt = record.ScannedAt.Format(time.RFC3339)
	}
	stats.UniqueVisitors = int64(len(visitors))

	// Time series sorted by date
	dates := make([]string, 0, len(scansByDate))
	for date := range scansByDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		stats.ScansByDay = append(stats.ScansByDay, model.TimeSeriesPoint{Date: date, Value: scansByDate[date]})
	}

	if used, err := h.redis.Get(ctx, scanUsedKeyPrefix+link.Code).Int64(); err == nil {
		stats.ScansUsed = used
	}

	// Most recent first, then apply pagination
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if offset >= len(records) {
		records = nil
	} else {
		end := offset + limit
		if end > len(records) {
			end = len(records)
		}
		records = records[offset:end]
	}

	SendJSONSuccess(w, http.StatusOK, model.ScanHistoryResponse{
		Code:  link.Code,
		Stats: stats,
		Scans: records,
	})
}
