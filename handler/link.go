package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/LMNRGroup/qr-je-sub001/adaptive"
	"github.com/LMNRGroup/qr-je-sub001/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// CreateLinkRequest is the payload for creating an adaptive link.
type CreateLinkRequest struct {
	Slots         []adaptive.Slot          `json:"slots"`
	DateRules     []adaptive.DateRule      `json:"dateRules,omitempty"`
	FirstReturn   adaptive.FirstReturnRule `json:"firstReturn,omitempty"`
	DefaultSlotID string                   `json:"defaultSlotID,omitempty"` // defaults to the first slot
	Timezone      string                   `json:"timezone,omitempty"`
	ScanLimit     int                      `json:"scanLimit,omitempty"`
}

// UpdateLinkRequest carries the full replacement configuration for a link.
type UpdateLinkRequest struct {
	Slots         []adaptive.Slot          `json:"slots"`
	DateRules     []adaptive.DateRule      `json:"dateRules,omitempty"`
	FirstReturn   adaptive.FirstReturnRule `json:"firstReturn,omitempty"`
	DefaultSlotID string                   `json:"defaultSlotID,omitempty"`
	Timezone      string                   `json:"timezone,omitempty"`
	ScanLimit     int                      `json:"scanLimit,omitempty"`
}

// validateConfiguration runs the shared create/update checks and writes the
// error response itself. Returns false when the request is rejected.
func (h *LinkHandler) validateConfiguration(w http.ResponseWriter, link *adaptive.AdaptiveLink) bool {
	limits := adaptive.Limits{
		MaxSlots: h.config.Adaptive.MaxSlotsPerLink,
		MaxRules: h.config.Adaptive.MaxRulesPerLink,
	}
	if err := adaptive.ValidateLink(link, limits); err != nil {
		log.Warn().Err(err).Str("code", link.Code).Msg("Link configuration rejected")
		SendJSONError(w, http.StatusBadRequest, err, "")
		return false
	}

	for _, slot := range link.Slots {
		if err := utils.ValidateSlotContent(slot.Content); err != nil {
			log.Warn().Err(err).Str("slot_id", slot.ID).Msg("Slot content rejected")
			SendJSONError(w, http.StatusBadRequest, err, fmt.Sprintf("Slot %q has invalid content", slot.ID))
			return false
		}
	}

	if link.Timezone != "" {
		if _, err := time.LoadLocation(link.Timezone); err != nil {
			SendJSONError(w, http.StatusBadRequest, errors.New("unknown timezone"), "Use an IANA zone name like Europe/Berlin")
			return false
		}
	}

	return true
}

// CreateLink handles POST /links
// @Summary Create an adaptive link
// @Description Creates a short link whose destination content is selected per scan by date/time rules or first/return visitor routing. Date rules and first/return routing are mutually exclusive. The default slot (first slot unless specified) is served when no rule matches.
// @Tags Links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link configuration"
// @Success 201 {object} LinkResponse "Successfully created link"
// @Failure 400 {object} ErrorResponse "Invalid configuration"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /links [post]
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	var input CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	link := adaptive.AdaptiveLink{
		ID:            uuid.New().String(),
		ManagementID:  uuid.New().String(),
		Slots:         input.Slots,
		DateRules:     input.DateRules,
		FirstReturn:   input.FirstReturn,
		DefaultSlotID: input.DefaultSlotID,
		Timezone:      input.Timezone,
		ScanLimit:     input.ScanLimit,
		CreatedAt:     h.now(),
	}
	if link.DefaultSlotID == "" && len(link.Slots) > 0 {
		link.DefaultSlotID = link.Slots[0].ID
	}
	if link.ScanLimit == 0 {
		link.ScanLimit = h.config.Adaptive.DefaultScanLimit
	}

	if !h.validateConfiguration(w, &link) {
		return
	}

	code, err := h.generateUniqueCode(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate unique short code")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to generate short code")
		return
	}
	link.Code = code

	if err := h.storeLink(ctx, link); err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to store link in Redis")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to store link")
		return
	}

	// Management index for update/delete operations
	if err := h.redis.HSet(ctx, managementIndexKey, link.ManagementID, code).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to add link to management index")
		// Don't fail the request, link is already stored
	}

	log.Info().
		Str("code", code).
		Str("management_id", link.ManagementID).
		Int("slots", len(link.Slots)).
		Int("date_rules", len(link.DateRules)).
		Bool("first_return", link.FirstReturn.Enabled).
		Msg("Adaptive link created")

	SendJSONSuccess(w, http.StatusCreated, LinkResponse{
		Code:          code,
		ShortURL:      fmt.Sprintf("%s/%s", h.baseURL, code),
		ManagementID:  link.ManagementID,
		QRCodeURL:     fmt.Sprintf("%s/qr/%s", h.baseURL, code),
		SlotCount:     len(link.Slots),
		DateRuleCount: len(link.DateRules),
		FirstReturn:   link.FirstReturn.Enabled,
	})
}

// lookupByManagementID resolves a management UUID to the stored link.
func (h *LinkHandler) lookupByManagementID(ctx context.Context, managementID string) (adaptive.AdaptiveLink, error) {
	code, err := h.redis.HGet(ctx, managementIndexKey, managementID).Result()
	if err != nil {
		return adaptive.AdaptiveLink{}, ErrLinkNotFound
	}
	return h.loadLink(ctx, code)
}

// UpdateLink handles PUT /links/{managementID}
// @Summary Update an adaptive link
// @Description Replaces a link's slots and rules. Removing a slot cascades: rules referencing it are dropped and a dangling default falls back to the first remaining slot.
// @Tags Links
// @Accept json
// @Produce json
// @Param managementID path string true "Management UUID"
// @Param request body UpdateLinkRequest true "Replacement configuration"
// @Success 200 {object} LinkResponse "Updated link"
// @Failure 400 {object} ErrorResponse "Invalid configuration"
// @Failure 404 {object} ErrorResponse "Unknown management ID"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /links/{managementID} [put]
func (h *LinkHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	managementID := vars["managementID"]

	if managementID == "" {
		SendJSONError(w, http.StatusBadRequest, errors.New("missing managementID"), "Management ID is required")
		return
	}

	var input UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid JSON format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	link, err := h.lookupByManagementID(ctx, managementID)
	if err != nil {
		log.Warn().Err(err).Str("management_id", managementID).Msg("Management ID not found")
		SendJSONError(w, http.StatusNotFound, ErrLinkNotFound, "Invalid management ID")
		return
	}

	link.Slots = input.Slots
	link.DateRules = input.DateRules
	link.FirstReturn = input.FirstReturn
	link.DefaultSlotID = input.DefaultSlotID
	link.Timezone = input.Timezone
	link.ScanLimit = input.ScanLimit
	if link.DefaultSlotID == "" && len(link.Slots) > 0 {
		link.DefaultSlotID = link.Slots[0].ID
	}

	// Slot deletions must not leave rules pointing at nothing.
	if removed := link.PruneDangling(); removed > 0 {
		log.Info().
			Str("code", link.Code).
			Int("removed_refs", removed).
			Msg("Pruned dangling slot references after update")
	}

	if !h.validateConfiguration(w, &link) {
		return
	}

	if err := h.storeLink(ctx, link); err != nil {
		log.Error().Err(err).Str("code", link.Code).Msg("Failed to update link in Redis")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to update link")
		return
	}

	log.Info().
		Str("management_id", managementID).
		Str("code", link.Code).
		Int("slots", len(link.Slots)).
		Msg("Adaptive link updated")

	SendJSONSuccess(w, http.StatusOK, LinkResponse{
		Code:          link.Code,
		ShortURL:      fmt.Sprintf("%s/%s", h.baseURL, link.Code),
		ManagementID:  managementID,
		QRCodeURL:     fmt.Sprintf("%s/qr/%s", h.baseURL, link.Code),
		SlotCount:     len(link.Slots),
		DateRuleCount: len(link.DateRules),
		FirstReturn:   link.FirstReturn.Enabled,
	})
}

// DeleteLink handles DELETE /links/{managementID}
// @Summary Delete an adaptive link
// @Description Deletes a link together with its scan history, quota counter, and visitor records.
// @Tags Links
// @Produce json
// @Param managementID path string true "Management UUID"
// @Success 204 "Link deleted"
// @Failure 404 {object} ErrorResponse "Unknown management ID"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /links/{managementID} [delete]
func (h *LinkHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	managementID := vars["managementID"]

	if managementID == "" {
		SendJSONError(w, http.StatusBadRequest, errors.New("missing managementID"), "Management ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	link, err := h.lookupByManagementID(ctx, managementID)
	if err != nil {
		log.Warn().Err(err).Str("management_id", managementID).Msg("Management ID not found")
		SendJSONError(w, http.StatusNotFound, ErrLinkNotFound, "Invalid management ID")
		return
	}

	if err := h.redis.Del(ctx, linkKeyPrefix+link.Code).Err(); err != nil {
		log.Error().Err(err).Str("code", link.Code).Msg("Failed to delete link from Redis")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to delete link")
		return
	}

	if err := h.redis.HDel(ctx, managementIndexKey, managementID).Err(); err != nil {
		log.Error().Err(err).Str("management_id", managementID).Msg("Failed to delete from management index")
	}

	// Scan history and quota counter go with the link
	if err := h.redis.Del(ctx, scanLogKeyPrefix+link.Code, scanUsedKeyPrefix+link.Code).Err(); err != nil {
		log.Error().Err(err).Str("code", link.Code).Msg("Failed to delete scan history")
	}

	// Visitor records must not outlive the link
	if pruned, err := h.tracker.PruneLink(ctx, link.ID); err != nil {
		log.Error().Err(err).Str("link_id", link.ID).Msg("Failed to prune visitor records")
	} else if pruned > 0 {
		log.Info().Str("link_id", link.ID).Int("pruned", pruned).Msg("Visitor records pruned")
	}

	if h.cache != nil {
		h.cache.Delete(link.Code)
	}

	log.Info().
		Str("management_id", managementID).
		Str("code", link.Code).
		Msg("Adaptive link deleted")

	w.WriteHeader(http.StatusNoContent)
}
