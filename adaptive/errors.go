package adaptive

import (
	"errors"
	"fmt"
)

// Validation errors returned when link configuration is rejected at
// create/update time.
var (
	ErrNoSlots            = errors.New("link must have at least one slot")
	ErrEmptySlotID        = errors.New("slot id cannot be empty")
	ErrDuplicateSlotID    = errors.New("slot ids must be unique within a link")
	ErrEmptySlotContent   = errors.New("slot content cannot be empty")
	ErrUnknownSlotRef     = errors.New("rule references a slot that does not exist")
	ErrUnknownDay         = errors.New("unknown day name in date rule")
	ErrBadTimeFormat      = errors.New("rule time must be HH:MM in 24-hour format")
	ErrConflictingRules   = errors.New("link cannot have both date rules and a first/return rule")
	ErrNoDefaultSlot      = errors.New("default slot must reference an existing slot")
	ErrTooManySlots       = errors.New("too many slots for one link")
	ErrTooManyRules       = errors.New("too many date rules for one link")
	ErrFirstReturnPartial = errors.New("first/return rule must name both a first and a return slot")
)

// ConfigurationError means a link cannot produce any slot at all: it has no
// slots, or its default slot is unresolvable. Fatal for the single
// resolution; the caller serves a generic unavailable response.
type ConfigurationError struct {
	LinkID string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("link %s misconfigured: %s", e.LinkID, e.Reason)
}

// TransientStorageError means the visitor store was unreachable or timed out
// during check-and-record. The caller chooses: retry once, or degrade by
// serving the default slot without recording the visit.
type TransientStorageError struct {
	Op  string
	Err error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("visitor store %s failed: %v", e.Op, e.Err)
}

func (e *TransientStorageError) Unwrap() error {
	return e.Err
}
