package adaptive

import (
	"strings"
	"time"
)

// Slot is a named content variant attached to an adaptive link. Content is
// opaque to the resolver (usually a destination URL, sometimes plain text).
type Slot struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// DateRule maps a day/time window to a slot. An empty Days set matches every
// day. StartTime/EndTime are local "HH:MM" bounds, inclusive on both ends;
// an absent bound is unbounded on that side. A window with start > end wraps
// midnight and spans into the next day.
type DateRule struct {
	SlotID    string   `json:"slotID"`
	Days      []string `json:"days,omitempty"`
	StartTime string   `json:"startTime,omitempty"`
	EndTime   string   `json:"endTime,omitempty"`
}

// FirstReturnRule routes by visitor cardinality: one slot for a fingerprint
// never seen on this link, another for returning fingerprints. A link has at
// most one of these.
type FirstReturnRule struct {
	Enabled      bool   `json:"enabled"`
	FirstSlotID  string `json:"firstSlotID,omitempty"`
	ReturnSlotID string `json:"returnSlotID,omitempty"`
}

// AdaptiveLink is the aggregate the resolver consumes. Slots and rules are
// immutable during a single resolution; the resolver never mutates them.
type AdaptiveLink struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`         // short code in the scan URL
	ManagementID  string          `json:"managementID"` // UUID v4 for update/delete operations
	Slots         []Slot          `json:"slots"`
	DateRules     []DateRule      `json:"dateRules,omitempty"`
	FirstReturn   FirstReturnRule `json:"firstReturn,omitempty"`
	DefaultSlotID string          `json:"defaultSlotID"`
	Timezone      string          `json:"timezone,omitempty"` // IANA zone governing day/time rules
	ScanLimit     int             `json:"scanLimit,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SlotIndex builds an id -> Slot lookup for one resolution pass.
func SlotIndex(slots []Slot) map[string]Slot {
	index := make(map[string]Slot, len(slots))
	for _, s := range slots {
		index[s.ID] = s
	}
	return index
}

// SlotByID returns the slot with the given id. A miss is not an error; rules
// pointing at deleted slots are skipped during resolution.
func (l *AdaptiveLink) SlotByID(id string) (Slot, bool) {
	for _, s := range l.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return Slot{}, false
}

// PruneDangling removes references to slots that no longer exist: date rules
// pointing at deleted slots are dropped, a first/return rule missing either
// slot is disabled, and a dangling default falls back to the first remaining
// slot. Returns the number of references removed. Called after slot edits so
// stored configuration never keeps stale ids.
func (l *AdaptiveLink) PruneDangling() int {
	removed := 0

	kept := l.DateRules[:0]
	for _, rule := range l.DateRules {
		if _, ok := l.SlotByID(rule.SlotID); ok {
			kept = append(kept, rule)
		} else {
			removed++
		}
	}
	l.DateRules = kept

	if l.FirstReturn.Enabled {
		_, firstOK := l.SlotByID(l.FirstReturn.FirstSlotID)
		_, returnOK := l.SlotByID(l.FirstReturn.ReturnSlotID)
		if !firstOK || !returnOK {
			l.FirstReturn = FirstReturnRule{}
			removed++
		}
	}

	if _, ok := l.SlotByID(l.DefaultSlotID); !ok {
		l.DefaultSlotID = ""
		if len(l.Slots) > 0 {
			l.DefaultSlotID = l.Slots[0].ID
		}
		removed++
	}

	return removed
}

// weekdays maps accepted day names (full and three-letter, case-insensitive)
// to time.Weekday.
var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday resolves a configured day name to a time.Weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return day, ok
}
