package adaptive

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// MatchedRule values reported in a Resolution.
const (
	MatchedFirstReturn = "first-return"
	MatchedDateRule    = "date-rule"
	MatchedDefault     = "default"
)

// Resolution is the outcome of resolving one scan: the content to serve, the
// slot it came from, and which kind of rule selected it.
type Resolution struct {
	Content     string `json:"content"`
	SlotID      string `json:"slotID"`
	MatchedRule string `json:"matchedRule"`
}

// Resolver selects a slot for an inbound scan. It is pure with respect to
// the link value; its only side effect is the single tracker write when a
// first/return rule is active.
type Resolver struct {
	tracker VisitorTracker
}

func NewResolver(tracker VisitorTracker) *Resolver {
	return &Resolver{tracker: tracker}
}

// Resolve evaluates the link's rules against now (interpreted in loc) and
// the visitor fingerprint.
//
// Precedence: an enabled first/return rule wins over date rules (the two are
// mutually exclusive at configuration time, but stored configuration is not
// trusted); date rules are evaluated in declaration order with first match
// winning; the default slot covers everything else. A rule whose slot no
// longer exists is skipped. Returns *ConfigurationError when the link cannot
// produce any slot, and passes through *TransientStorageError from the
// tracker so the caller can retry or degrade.
func (r *Resolver) Resolve(ctx context.Context, link AdaptiveLink, now time.Time, loc *time.Location, fingerprint string) (Resolution, error) {
	if len(link.Slots) == 0 {
		return Resolution{}, &ConfigurationError{LinkID: link.ID, Reason: "link has no slots"}
	}

	slots := SlotIndex(link.Slots)
	localNow := now.In(loc)

	if link.FirstReturn.Enabled {
		wasFirst, err := r.tracker.CheckAndRecord(ctx, link.ID, fingerprint, now)
		if err != nil {
			return Resolution{}, err
		}

		slotID := link.FirstReturn.ReturnSlotID
		if wasFirst {
			slotID = link.FirstReturn.FirstSlotID
		}

		if slot, ok := slots[slotID]; ok {
			return Resolution{Content: slot.Content, SlotID: slot.ID, MatchedRule: MatchedFirstReturn}, nil
		}

		log.Warn().
			Str("link_id", link.ID).
			Str("slot_id", slotID).
			Bool("was_first_visit", wasFirst).
			Msg("First/return rule references missing slot, falling back to default")
		return fallback(link, slots)
	}

	for i, rule := range link.DateRules {
		slot, ok := slots[rule.SlotID]
		if !ok {
			// Stale reference after slot deletion; skip, never fail.
			log.Warn().
				Str("link_id", link.ID).
				Int("rule_index", i).
				Str("slot_id", rule.SlotID).
				Msg("Date rule references missing slot, skipping")
			continue
		}

		matches, err := matchesDateRule(rule, localNow)
		if err != nil {
			log.Warn().Err(err).
				Str("link_id", link.ID).
				Int("rule_index", i).
				Msg("Malformed date rule treated as non-matching")
			continue
		}
		if matches {
			return Resolution{Content: slot.Content, SlotID: slot.ID, MatchedRule: MatchedDateRule}, nil
		}
	}

	return fallback(link, slots)
}

// Fallback resolves the link's default slot directly, bypassing all rules
// and the tracker. Callers use it to degrade when the visitor store is
// unavailable and the integrator chose availability over visit accuracy.
func Fallback(link AdaptiveLink) (Resolution, error) {
	if len(link.Slots) == 0 {
		return Resolution{}, &ConfigurationError{LinkID: link.ID, Reason: "link has no slots"}
	}
	return fallback(link, SlotIndex(link.Slots))
}

func fallback(link AdaptiveLink, slots map[string]Slot) (Resolution, error) {
	slot, ok := slots[link.DefaultSlotID]
	if !ok {
		return Resolution{}, &ConfigurationError{LinkID: link.ID, Reason: "default slot is missing or unset"}
	}
	return Resolution{Content: slot.Content, SlotID: slot.ID, MatchedRule: MatchedDefault}, nil
}

// matchesDateRule reports whether localNow falls inside the rule's day and
// time window. Bounds are inclusive on both ends; an absent bound is open on
// that side. When start > end the window wraps midnight: the early-morning
// part belongs to a window that opened on the previous day, so the day
// filter is checked against yesterday for it.
func matchesDateRule(rule DateRule, localNow time.Time) (bool, error) {
	start, haveStart, err := parseClock(rule.StartTime)
	if err != nil {
		return false, err
	}
	end, haveEnd, err := parseClock(rule.EndTime)
	if err != nil {
		return false, err
	}
	if !haveStart {
		start = 0
	}
	if !haveEnd {
		end = 24*60 - 1
	}

	days, err := parseDays(rule.Days)
	if err != nil {
		return false, err
	}

	minute := localNow.Hour()*60 + localNow.Minute()
	today := localNow.Weekday()

	if start <= end {
		return dayAllowed(days, today) && minute >= start && minute <= end, nil
	}

	// Midnight wraparound: 22:00-02:00 covers [22:00, 24:00) of a matching
	// day plus [00:00, 02:00] of the following day.
	if minute >= start {
		return dayAllowed(days, today), nil
	}
	if minute <= end {
		yesterday := (today + 6) % 7
		return dayAllowed(days, yesterday), nil
	}
	return false, nil
}

// parseClock parses an "HH:MM" bound into minutes since midnight. Returns
// haveValue=false for an absent bound.
func parseClock(value string) (int, bool, error) {
	if value == "" {
		return 0, false, nil
	}

	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, false, fmt.Errorf("%w: %q", ErrBadTimeFormat, value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false, fmt.Errorf("%w: %q", ErrBadTimeFormat, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false, fmt.Errorf("%w: %q", ErrBadTimeFormat, value)
	}

	return hour*60 + minute, true, nil
}

func parseDays(names []string) (map[time.Weekday]bool, error) {
	if len(names) == 0 {
		return nil, nil // every day
	}
	days := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		day, ok := ParseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDay, name)
		}
		days[day] = true
	}
	return days, nil
}

func dayAllowed(days map[time.Weekday]bool, day time.Weekday) bool {
	return len(days) == 0 || days[day]
}
