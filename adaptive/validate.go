package adaptive

import (
	"fmt"
)

// Limits bounds link configuration size; zero values mean unlimited.
type Limits struct {
	MaxSlots int
	MaxRules int
}

// ValidateLink enforces the configuration-time invariants: slots exist with
// unique non-empty ids and content, every rule references an existing slot,
// day names and time bounds parse, the default slot resolves, and date rules
// and first/return routing are mutually exclusive. The resolver tolerates
// broken stored configuration anyway; this keeps it from being stored in the
// first place.
func ValidateLink(link *AdaptiveLink, limits Limits) error {
	if len(link.Slots) == 0 {
		return ErrNoSlots
	}
	if limits.MaxSlots > 0 && len(link.Slots) > limits.MaxSlots {
		return fmt.Errorf("%w (max %d)", ErrTooManySlots, limits.MaxSlots)
	}
	if limits.MaxRules > 0 && len(link.DateRules) > limits.MaxRules {
		return fmt.Errorf("%w (max %d)", ErrTooManyRules, limits.MaxRules)
	}

	seen := make(map[string]bool, len(link.Slots))
	for _, slot := range link.Slots {
		if slot.ID == "" {
			return ErrEmptySlotID
		}
		if seen[slot.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateSlotID, slot.ID)
		}
		seen[slot.ID] = true
		if slot.Content == "" {
			return fmt.Errorf("%w: slot %q", ErrEmptySlotContent, slot.ID)
		}
	}

	// Product rule: date rules OR visit rules, never both on one link.
	if len(link.DateRules) > 0 && link.FirstReturn.Enabled {
		return ErrConflictingRules
	}

	for i, rule := range link.DateRules {
		if !seen[rule.SlotID] {
			return fmt.Errorf("%w: rule %d -> %q", ErrUnknownSlotRef, i, rule.SlotID)
		}
		for _, day := range rule.Days {
			if _, ok := ParseWeekday(day); !ok {
				return fmt.Errorf("%w: rule %d day %q", ErrUnknownDay, i, day)
			}
		}
		if _, _, err := parseClock(rule.StartTime); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if _, _, err := parseClock(rule.EndTime); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}

	if link.FirstReturn.Enabled {
		if link.FirstReturn.FirstSlotID == "" || link.FirstReturn.ReturnSlotID == "" {
			return ErrFirstReturnPartial
		}
		if !seen[link.FirstReturn.FirstSlotID] {
			return fmt.Errorf("%w: firstSlot %q", ErrUnknownSlotRef, link.FirstReturn.FirstSlotID)
		}
		if !seen[link.FirstReturn.ReturnSlotID] {
			return fmt.Errorf("%w: returnSlot %q", ErrUnknownSlotRef, link.FirstReturn.ReturnSlotID)
		}
	}

	if link.DefaultSlotID == "" || !seen[link.DefaultSlotID] {
		return fmt.Errorf("%w: %q", ErrNoDefaultSlot, link.DefaultSlotID)
	}

	return nil
}
