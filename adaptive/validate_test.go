package adaptive

import (
	"errors"
	"testing"
)

func validLink() AdaptiveLink {
	return AdaptiveLink{
		ID:   "link-1",
		Code: "abc123xy",
		Slots: []Slot{
			{ID: "A", Content: "https://example.com/a"},
			{ID: "B", Content: "https://example.com/b"},
		},
		DateRules: []DateRule{
			{SlotID: "B", Days: []string{"Mon", "Tue"}, StartTime: "11:00", EndTime: "14:00"},
		},
		DefaultSlotID: "A",
	}
}

func TestValidateLink(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AdaptiveLink)
		wantErr error
	}{
		{"Valid link", func(l *AdaptiveLink) {}, nil},
		{"No slots", func(l *AdaptiveLink) { l.Slots = nil }, ErrNoSlots},
		{"Empty slot id", func(l *AdaptiveLink) { l.Slots[0].ID = "" }, ErrEmptySlotID},
		{"Duplicate slot id", func(l *AdaptiveLink) { l.Slots[1].ID = "A"; l.DateRules = nil }, ErrDuplicateSlotID},
		{"Empty slot content", func(l *AdaptiveLink) { l.Slots[1].Content = "" }, ErrEmptySlotContent},
		{"Rule references unknown slot", func(l *AdaptiveLink) { l.DateRules[0].SlotID = "Z" }, ErrUnknownSlotRef},
		{"Unknown day name", func(l *AdaptiveLink) { l.DateRules[0].Days = []string{"Caturday"} }, ErrUnknownDay},
		{"Bad start time", func(l *AdaptiveLink) { l.DateRules[0].StartTime = "11am" }, ErrBadTimeFormat},
		{"Bad end time", func(l *AdaptiveLink) { l.DateRules[0].EndTime = "24:00" }, ErrBadTimeFormat},
		{"Dangling default slot", func(l *AdaptiveLink) { l.DefaultSlotID = "Z" }, ErrNoDefaultSlot},
		{"Empty default slot", func(l *AdaptiveLink) { l.DefaultSlotID = "" }, ErrNoDefaultSlot},
		{
			"Date rules and first/return both active",
			func(l *AdaptiveLink) {
				l.FirstReturn = FirstReturnRule{Enabled: true, FirstSlotID: "A", ReturnSlotID: "B"}
			},
			ErrConflictingRules,
		},
		{
			"First/return missing slot name",
			func(l *AdaptiveLink) {
				l.DateRules = nil
				l.FirstReturn = FirstReturnRule{Enabled: true, FirstSlotID: "A"}
			},
			ErrFirstReturnPartial,
		},
		{
			"First/return references unknown slot",
			func(l *AdaptiveLink) {
				l.DateRules = nil
				l.FirstReturn = FirstReturnRule{Enabled: true, FirstSlotID: "A", ReturnSlotID: "Z"}
			},
			ErrUnknownSlotRef,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := validLink()
			tt.mutate(&link)

			err := ValidateLink(&link, Limits{})
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateLink() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateLink() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateLink_Limits(t *testing.T) {
	link := validLink()
	if err := ValidateLink(&link, Limits{MaxSlots: 1}); !errors.Is(err, ErrTooManySlots) {
		t.Errorf("error = %v, want %v", err, ErrTooManySlots)
	}

	link = validLink()
	if err := ValidateLink(&link, Limits{MaxRules: 0, MaxSlots: 10}); err != nil {
		t.Errorf("zero limits mean unlimited, got %v", err)
	}
}

func TestValidateLink_UnboundedWindows(t *testing.T) {
	link := validLink()
	link.DateRules = []DateRule{
		{SlotID: "B"},                      // all day, every day
		{SlotID: "B", StartTime: "09:00"},  // open-ended
		{SlotID: "B", EndTime: "17:00"},    // open-started
		{SlotID: "B", StartTime: "22:00", EndTime: "02:00"}, // midnight wrap
	}
	if err := ValidateLink(&link, Limits{}); err != nil {
		t.Errorf("ValidateLink() error = %v, want nil", err)
	}
}
