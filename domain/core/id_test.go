package core

import (
	"errors"
	"testing"
	"time"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseID tests ID parsing
func TestParseID(t *testing.T) {
	tests := []struct {
		input    string
		expected ID
		hasError bool
	}{
		{"log-123", ID("log-123"), false},
		{"  goal-7 ", ID("goal-7"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if test.hasError && !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Expected ErrInvalidRecord for input '%s', got %v", test.input, err)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

func TestStartOfISOWeek(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC), "2024-03-04"},  // Wednesday
		{time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), "2024-03-04"},    // Monday
		{time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), "2024-03-04"}, // Sunday
	}
	for _, tt := range tests {
		if got := StartOfISOWeek(tt.in).Format(DateLayout); got != tt.want {
			t.Errorf("StartOfISOWeek(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestComputeFingerprintStable(t *testing.T) {
	type payload struct {
		A int               `json:"a"`
		B map[string]string `json:"b"`
	}
	p := payload{A: 1, B: map[string]string{"z": "1", "a": "2"}}

	h1, err := ComputeFingerprint(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, _ := ComputeFingerprint(p)
	if !h1.Equals(h2) {
		t.Errorf("fingerprint not stable: %s vs %s", h1, h2)
	}

	p.A = 2
	h3, _ := ComputeFingerprint(p)
	if h1.Equals(h3) {
		t.Error("fingerprint should change when payload changes")
	}
}
