package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LMNRGroup/qr-je-sub001/adaptive"
	"github.com/LMNRGroup/qr-je-sub001/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// newTestHandler wires a handler against miniredis with a fixed clock
// (Monday 2024-01-01 12:00 UTC).
func newTestHandler(t *testing.T) (*LinkHandler, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.Config{
		WebServer: config.WebServerConfig{
			Scheme: "http",
			IP:     "localhost",
			Port:   "8080",
		},
		Redis: config.RedisConfig{OperationTimeout: 5},
		Adaptive: config.AdaptiveConfig{
			DefaultTimezone: "UTC",
			CodeMinLength:   8,
			CodeMaxLength:   10,
			MaxSlotsPerLink: 20,
			MaxRulesPerLink: 20,
		},
	}

	tracker := adaptive.NewRedisVisitorTracker(client, 0)
	h := NewLinkHandler(client, nil, cfg, tracker)
	h.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return h, s
}

// createTestLink stores a link through the handler and returns the response.
func createTestLink(t *testing.T, h *LinkHandler, req CreateLinkRequest) LinkResponse {
	t.Helper()
	body, _ := json.Marshal(req)

	r := httptest.NewRequest(http.MethodPost, "/links", bytes.NewBuffer(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.CreateLink(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("CreateLink status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp LinkResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse create response: %v", err)
	}
	return resp
}

func TestGenerateRandomString(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"Length 8", 8},
		{"Length 10", 10},
		{"Length 6", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := generateRandomString(tt.length)
			if err != nil {
				t.Errorf("generateRandomString() error = %v", err)
				return
			}
			if len(result) != tt.length {
				t.Errorf("generateRandomString() length = %v, want %v", len(result), tt.length)
			}

			// Check all characters are from charset
			for _, ch := range result {
				found := false
				for _, valid := range charset {
					if ch == valid {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Invalid character %c in generated string", ch)
				}
			}
		})
	}
}

func TestGenerateRandomString_Uniqueness(t *testing.T) {
	generated := make(map[string]bool)
	for i := 0; i < 100; i++ {
		str, err := generateRandomString(8)
		if err != nil {
			t.Fatalf("generateRandomString() error = %v", err)
		}
		if generated[str] {
			t.Errorf("Duplicate string generated: %s", str)
		}
		generated[str] = true
	}
}

func TestGenerateUniqueCode_CollisionRetry(t *testing.T) {
	h, _ := newTestHandler(t)

	code, err := h.generateUniqueCode(context.Background())
	if err != nil {
		t.Fatalf("generateUniqueCode() error = %v", err)
	}
	if len(code) < 8 || len(code) > 10 {
		t.Errorf("code length = %d, want between 8 and 10", len(code))
	}
}

func TestLoadLink_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.loadLink(context.Background(), "missing")
	if err != ErrLinkNotFound {
		t.Errorf("loadLink() error = %v, want ErrLinkNotFound", err)
	}
}

func TestHealthCheck(t *testing.T) {
	h, s := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HealthCheck(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	s.Close()
	w = httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status after Redis down = %d, want 503", w.Code)
	}
}

func TestCacheMetrics_Disabled(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	h.CacheMetrics(w, httptest.NewRequest(http.MethodGet, "/cache/metrics", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when cache disabled", w.Code)
	}
}
