package adaptive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// 2024-01-01 is a Monday.
func monday(hour, min int) time.Time {
	return time.Date(2024, 1, 1, hour, min, 0, 0, time.UTC)
}

func tuesday(hour, min int) time.Time {
	return time.Date(2024, 1, 2, hour, min, 0, 0, time.UTC)
}

func testLink(slots []Slot, rules []DateRule, firstReturn FirstReturnRule, defaultSlot string) AdaptiveLink {
	return AdaptiveLink{
		ID:            "link-1",
		Code:          "abc123xy",
		Slots:         slots,
		DateRules:     rules,
		FirstReturn:   firstReturn,
		DefaultSlotID: defaultSlot,
	}
}

func twoSlots() []Slot {
	return []Slot{
		{ID: "A", Name: "Default", Content: "https://example.com/a"},
		{ID: "B", Name: "Lunch", Content: "https://example.com/b"},
	}
}

func setupTracker(t *testing.T) (*RedisVisitorTracker, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisVisitorTracker(client, 0), s
}

func TestResolve_DateRuleScenario(t *testing.T) {
	link := testLink(twoSlots(), []DateRule{
		{SlotID: "B", Days: []string{"Mon"}, StartTime: "11:00", EndTime: "14:00"},
	}, FirstReturnRule{}, "A")
	resolver := NewResolver(nil)

	tests := []struct {
		name        string
		now         time.Time
		wantSlot    string
		wantMatched string
	}{
		{"Monday noon inside window", monday(12, 0), "B", MatchedDateRule},
		{"Monday after window", monday(15, 0), "A", MatchedDefault},
		{"Tuesday noon", tuesday(12, 0), "A", MatchedDefault},
		{"Window start is inclusive", monday(11, 0), "B", MatchedDateRule},
		{"Window end is inclusive", monday(14, 0), "B", MatchedDateRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := resolver.Resolve(context.Background(), link, tt.now, time.UTC, "f1")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.SlotID != tt.wantSlot {
				t.Errorf("SlotID = %q, want %q", res.SlotID, tt.wantSlot)
			}
			if res.MatchedRule != tt.wantMatched {
				t.Errorf("MatchedRule = %q, want %q", res.MatchedRule, tt.wantMatched)
			}
		})
	}
}

func TestResolve_FirstRuleWins(t *testing.T) {
	// Both rules match Monday noon; declaration order decides, not
	// specificity (the second rule is narrower).
	link := testLink(twoSlots(), []DateRule{
		{SlotID: "A"},
		{SlotID: "B", Days: []string{"Mon"}, StartTime: "11:00", EndTime: "14:00"},
	}, FirstReturnRule{}, "B")
	resolver := NewResolver(nil)

	res, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.SlotID != "A" {
		t.Errorf("SlotID = %q, want earlier-indexed rule's slot A", res.SlotID)
	}
	if res.MatchedRule != MatchedDateRule {
		t.Errorf("MatchedRule = %q, want %q", res.MatchedRule, MatchedDateRule)
	}
}

func TestResolve_MidnightWraparound(t *testing.T) {
	link := testLink(twoSlots(), []DateRule{
		{SlotID: "B", StartTime: "22:00", EndTime: "02:00"},
	}, FirstReturnRule{}, "A")
	resolver := NewResolver(nil)

	tests := []struct {
		name     string
		now      time.Time
		wantSlot string
	}{
		{"Late evening inside window", monday(23, 30), "B"},
		{"Early morning inside window", monday(1, 30), "B"},
		{"Noon outside window", monday(12, 0), "A"},
		{"Exactly at wrap start", monday(22, 0), "B"},
		{"Exactly at wrap end", monday(2, 0), "B"},
		{"Just past wrap end", monday(2, 1), "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := resolver.Resolve(context.Background(), link, tt.now, time.UTC, "f1")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.SlotID != tt.wantSlot {
				t.Errorf("SlotID = %q, want %q", res.SlotID, tt.wantSlot)
			}
		})
	}
}

func TestResolve_MidnightWraparoundWithDays(t *testing.T) {
	// A Monday 22:00-02:00 window spans into Tuesday morning.
	link := testLink(twoSlots(), []DateRule{
		{SlotID: "B", Days: []string{"Monday"}, StartTime: "22:00", EndTime: "02:00"},
	}, FirstReturnRule{}, "A")
	resolver := NewResolver(nil)

	tests := []struct {
		name     string
		now      time.Time
		wantSlot string
	}{
		{"Monday late evening", monday(23, 30), "B"},
		{"Tuesday early morning belongs to Monday's window", tuesday(1, 30), "B"},
		{"Tuesday late evening", tuesday(23, 30), "A"},
		{"Monday early morning belongs to Sunday's window", monday(1, 30), "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := resolver.Resolve(context.Background(), link, tt.now, time.UTC, "f1")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.SlotID != tt.wantSlot {
				t.Errorf("SlotID = %q, want %q", res.SlotID, tt.wantSlot)
			}
		})
	}
}

func TestResolve_TimezoneGovernsDayAndTime(t *testing.T) {
	// Tuesday 00:30 UTC is still Monday 19:30 in UTC-5.
	link := testLink(twoSlots(), []DateRule{
		{SlotID: "B", Days: []string{"Mon"}, StartTime: "19:00", EndTime: "20:00"},
	}, FirstReturnRule{}, "A")
	resolver := NewResolver(nil)
	loc := time.FixedZone("UTC-5", -5*3600)

	res, err := resolver.Resolve(context.Background(), link, tuesday(0, 30), loc, "f1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.SlotID != "B" {
		t.Errorf("SlotID = %q, want B (Monday evening in the link's zone)", res.SlotID)
	}

	// Same instant evaluated in UTC is Tuesday and must not match.
	res, err = resolver.Resolve(context.Background(), link, tuesday(0, 30), time.UTC, "f1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.SlotID != "A" {
		t.Errorf("SlotID = %q, want A (Tuesday in UTC)", res.SlotID)
	}
}

func TestResolve_Determinism(t *testing.T) {
	link := testLink(twoSlots(), []DateRule{
		{SlotID: "B", Days: []string{"Mon"}, StartTime: "11:00", EndTime: "14:00"},
	}, FirstReturnRule{}, "A")
	resolver := NewResolver(nil)

	first, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		res, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if res != first {
			t.Fatalf("Resolution changed across identical calls: %+v vs %+v", res, first)
		}
	}
}

func TestResolve_DanglingRuleSkipped(t *testing.T) {
	t.Run("Falls through to next matching rule", func(t *testing.T) {
		link := testLink(twoSlots(), []DateRule{
			{SlotID: "deleted"}, // stale reference, matches any time
			{SlotID: "B"},
		}, FirstReturnRule{}, "A")
		resolver := NewResolver(nil)

		res, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if res.SlotID != "B" {
			t.Errorf("SlotID = %q, want B", res.SlotID)
		}
	})

	t.Run("Falls through to default", func(t *testing.T) {
		link := testLink(twoSlots(), []DateRule{
			{SlotID: "deleted"},
		}, FirstReturnRule{}, "A")
		resolver := NewResolver(nil)

		res, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if res.SlotID != "A" || res.MatchedRule != MatchedDefault {
			t.Errorf("got slot %q rule %q, want default A", res.SlotID, res.MatchedRule)
		}
	})
}

func TestResolve_MalformedRuleNonMatching(t *testing.T) {
	tests := []struct {
		name string
		rule DateRule
	}{
		{"Bad start time", DateRule{SlotID: "B", StartTime: "25:99", EndTime: "14:00"}},
		{"Garbage time", DateRule{SlotID: "B", StartTime: "noon"}},
		{"Unknown day name", DateRule{SlotID: "B", Days: []string{"Funday"}}},
	}

	resolver := NewResolver(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := testLink(twoSlots(), []DateRule{tt.rule}, FirstReturnRule{}, "A")
			res, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
			if err != nil {
				t.Fatalf("Resolve() error = %v, malformed rules must not be fatal", err)
			}
			if res.SlotID != "A" {
				t.Errorf("SlotID = %q, want default A", res.SlotID)
			}
		})
	}
}

func TestResolve_ConfigurationError(t *testing.T) {
	resolver := NewResolver(nil)

	t.Run("No slots", func(t *testing.T) {
		link := testLink(nil, nil, FirstReturnRule{}, "")
		_, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("error = %v, want *ConfigurationError", err)
		}
	})

	t.Run("Dangling default slot", func(t *testing.T) {
		link := testLink(twoSlots(), nil, FirstReturnRule{}, "gone")
		_, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("error = %v, want *ConfigurationError", err)
		}
	})
}

func TestResolve_FirstReturn(t *testing.T) {
	tracker, s := setupTracker(t)
	resolver := NewResolver(tracker)
	link := testLink(twoSlots(), nil, FirstReturnRule{
		Enabled:      true,
		FirstSlotID:  "A",
		ReturnSlotID: "B",
	}, "A")
	ctx := context.Background()

	// First scan with f1 sees the first-visit slot
	res, err := resolver.Resolve(ctx, link, monday(12, 0), time.UTC, "f1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.SlotID != "A" || res.MatchedRule != MatchedFirstReturn {
		t.Errorf("first scan: got slot %q rule %q, want A/first-return", res.SlotID, res.MatchedRule)
	}

	// Every later scan with f1 sees the return slot
	for i := 0; i < 3; i++ {
		res, err = resolver.Resolve(ctx, link, monday(12, 0), time.UTC, "f1")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if res.SlotID != "B" {
			t.Errorf("repeat scan %d: SlotID = %q, want B", i+2, res.SlotID)
		}
	}

	// Exactly one tracker record exists for f1
	if got := len(s.Keys()); got != 1 {
		t.Errorf("tracker keys = %d, want exactly 1 write for f1", got)
	}

	// A different fingerprint is a first visit again
	res, err = resolver.Resolve(ctx, link, monday(12, 0), time.UTC, "f2")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.SlotID != "A" {
		t.Errorf("f2 first scan: SlotID = %q, want A", res.SlotID)
	}
}

func TestResolve_FirstReturnWinsOverDateRules(t *testing.T) {
	// Inconsistent stored configuration: both rule kinds present. The
	// documented precedence is first/return.
	tracker, _ := setupTracker(t)
	resolver := NewResolver(tracker)
	link := testLink(twoSlots(), []DateRule{
		{SlotID: "B"}, // would match any instant
	}, FirstReturnRule{Enabled: true, FirstSlotID: "A", ReturnSlotID: "B"}, "B")

	res, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.MatchedRule != MatchedFirstReturn {
		t.Errorf("MatchedRule = %q, want %q", res.MatchedRule, MatchedFirstReturn)
	}
	if res.SlotID != "A" {
		t.Errorf("SlotID = %q, want A", res.SlotID)
	}
}

func TestResolve_FirstReturnDanglingSlotFallsBack(t *testing.T) {
	tracker, _ := setupTracker(t)
	resolver := NewResolver(tracker)
	link := testLink(twoSlots(), nil, FirstReturnRule{
		Enabled:      true,
		FirstSlotID:  "deleted",
		ReturnSlotID: "B",
	}, "A")

	res, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.SlotID != "A" || res.MatchedRule != MatchedDefault {
		t.Errorf("got slot %q rule %q, want default A", res.SlotID, res.MatchedRule)
	}
}

func TestResolve_TrackerFailurePropagates(t *testing.T) {
	tracker, s := setupTracker(t)
	resolver := NewResolver(tracker)
	link := testLink(twoSlots(), nil, FirstReturnRule{
		Enabled:      true,
		FirstSlotID:  "A",
		ReturnSlotID: "B",
	}, "A")

	s.Close() // visitor store goes away

	_, err := resolver.Resolve(context.Background(), link, monday(12, 0), time.UTC, "f1")
	var storageErr *TransientStorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("error = %v, want *TransientStorageError", err)
	}
}

func TestFallback(t *testing.T) {
	link := testLink(twoSlots(), nil, FirstReturnRule{}, "A")
	res, err := Fallback(link)
	if err != nil {
		t.Fatalf("Fallback() error = %v", err)
	}
	if res.SlotID != "A" || res.MatchedRule != MatchedDefault {
		t.Errorf("got slot %q rule %q, want default A", res.SlotID, res.MatchedRule)
	}

	link.DefaultSlotID = "gone"
	if _, err := Fallback(link); err == nil {
		t.Error("Fallback() with dangling default should error")
	}
}
