package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

// GenerateQR handles GET /qr/{code} - renders the QR code for a short link
// @Summary Generate a QR code
// @Description Renders a PNG QR code pointing at the adaptive short link. Every scan of the printed code goes through rule resolution.
// @Tags QR
// @Produce png
// @Param code path string true "Short code"
// @Param size query int false "Image size in pixels (128-1024)" default(256)
// @Param level query string false "Error correction level: low, medium, high, highest" default(medium)
// @Success 200 "PNG image"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Unknown short code"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /qr/{code} [get]
func (h *LinkHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	vars := mux.Vars(r)
	code := vars["code"]

	exists, err := h.redis.Exists(ctx, linkKeyPrefix+code).Result()
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to check link existence for QR")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to verify link")
		return
	}

	if exists == 0 {
		log.Warn().Str("code", code).Msg("Link not found for QR generation")
		SendJSONError(w, http.StatusNotFound, ErrLinkNotFound, "Short code does not exist")
		return
	}

	query := r.URL.Query()

	// Size parameter (default: 256, min: 128, max: 1024)
	size := 256
	if sizeStr := query.Get("size"); sizeStr != "" {
		parsedSize, err := strconv.Atoi(sizeStr)
		if err != nil {
			SendJSONError(w, http.StatusBadRequest, errors.New("invalid size parameter"), "Size must be a number")
			return
		}
		if parsedSize < 128 || parsedSize > 1024 {
			SendJSONError(w, http.StatusBadRequest, errors.New("size out of range"), "Size must be between 128 and 1024")
			return
		}
		size = parsedSize
	}

	// Error correction level (default: medium)
	level := qrcode.Medium
	if levelStr := query.Get("level"); levelStr != "" {
		switch levelStr {
		case "low":
			level = qrcode.Low
		case "medium":
			level = qrcode.Medium
		case "high":
			level = qrcode.High
		case "highest":
			level = qrcode.Highest
		default:
			SendJSONError(w, http.StatusBadRequest, errors.New("invalid level parameter"), "Level must be: low, medium, high, or highest")
			return
		}
	}

	fullURL := fmt.Sprintf("%s/%s", h.baseURL, code)

	qrCode, err := qrcode.Encode(fullURL, level, size)
	if err != nil {
		log.Error().Err(err).Str("url", fullURL).Msg("Failed to generate QR code")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600") // the code itself never changes, only its resolution
	w.Header().Set("Content-Length", strconv.Itoa(len(qrCode)))

	if _, err := w.Write(qrCode); err != nil {
		log.Error().Err(err).Msg("Failed to write QR code response")
		return
	}

	log.Info().
		Str("code", code).
		Str("full_url", fullURL).
		Int("size", size).
		Msg("QR code generated")
}
