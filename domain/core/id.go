package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Falls back to v4 if v7 generation fails
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// ParseID parses a string into an ID
func ParseID(s string) (ID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: id cannot be empty", ErrInvalidRecord)
	}
	return ID(strings.TrimSpace(s)), nil
}

// StorageKey names a persisted collection
type StorageKey string

// Collection keys used by the tracker
const (
	KeyLogs            StorageKey = "logs"
	KeyCrisisEvents    StorageKey = "crisis_events"
	KeyScheduleEntries StorageKey = "schedule_entries"
	KeyGoals           StorageKey = "goals"
	KeyChildProfile    StorageKey = "child_profile"
)

func (k StorageKey) String() string { return string(k) }
