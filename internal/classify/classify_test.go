package classify

import (
	"testing"

	"github.com/triage-desk/triage/internal/category"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	return New(category.Default())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		category   string
		minMatches int
	}{
		{
			name:       "locked out account",
			text:       "Can't login to my account\nI've been locked out of my account for 2 hours. I need access urgently for a client meeting.",
			category:   "password_reset",
			minMatches: 2,
		},
		{
			name:       "printer trouble",
			text:       "The printer in room 4 shows a paper jam error and the toner light blinks.",
			category:   "printer_issue",
			minMatches: 3,
		},
		{
			name:       "vpn drop",
			text:       "My vpn connection to the office network keeps dropping.",
			category:   "network_issue",
			minMatches: 3,
		},
		{
			name:       "no keywords at all",
			text:       "hello there, just checking in",
			category:   category.Other,
			minMatches: 0,
		},
	}

	c := newClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Classify(tt.text)
			if result.Category != tt.category {
				t.Errorf("category: got %s, want %s (matches=%d)", result.Category, tt.category, result.Matches)
			}
			if result.Matches < tt.minMatches {
				t.Errorf("matches: got %d, want at least %d", result.Matches, tt.minMatches)
			}
			if result.Confidence < 0 || result.Confidence > 1 {
				t.Errorf("confidence out of range: %f", result.Confidence)
			}
		})
	}
}

func TestClassifyLowConfidenceFloor(t *testing.T) {
	c := newClassifier(t)

	// A single keyword hit stays below the floor and must be reported as
	// "other" with the fixed confidence.
	result := c.Classify("my password is fine by the way")
	if result.Category != category.Other {
		t.Errorf("category: got %s, want %s", result.Category, category.Other)
	}
	if result.Confidence != 0.15 {
		t.Errorf("confidence: got %f, want 0.15", result.Confidence)
	}
	if result.Priority != category.PriorityMedium {
		t.Errorf("priority: got %s, want medium", result.Priority)
	}
}

func TestClassifyTieKeepsConfigOrder(t *testing.T) {
	c := newClassifier(t)

	// Two keywords for password_reset and two for software_install;
	// password_reset comes first in the canonical table.
	result := c.Classify("password reset then install software")
	if result.Category != "password_reset" {
		t.Errorf("tie-break: got %s, want password_reset", result.Category)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := newClassifier(t)
	text := "the printer won't print and the scanner is offline"

	first := c.Classify(text)
	second := c.Classify(text)
	if first != second {
		t.Errorf("classification not idempotent: %+v vs %+v", first, second)
	}
}

func TestClassifyMonotonic(t *testing.T) {
	c := newClassifier(t)
	text := "the printer is jammed"

	base := c.Classify(text)
	more := c.Classify(text + " printer printer printer")
	if more.Confidence < base.Confidence {
		t.Errorf("confidence decreased: %f -> %f", base.Confidence, more.Confidence)
	}
}

func TestClassifyConfidenceSaturates(t *testing.T) {
	c := newClassifier(t)

	// All password_reset keywords at once.
	text := "password reset locked out login log in sign in account credentials forgot access"
	result := c.Classify(text)
	if result.Confidence > 1.0 {
		t.Errorf("confidence above cap: %f", result.Confidence)
	}
}

func TestDeterminePriority(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected category.Priority
	}{
		{
			name:     "urgently forces urgent",
			text:     "I've been locked out of my account. I need access urgently for a client meeting.",
			expected: category.PriorityUrgent,
		},
		{
			name:     "production keyword forces urgent",
			text:     "the printer is broken and production is blocked",
			expected: category.PriorityUrgent,
		},
		{
			name:     "category default otherwise",
			text:     "the printer shows a paper jam and the toner is low",
			expected: category.PriorityLow,
		},
		{
			name:     "no category falls back to medium",
			text:     "hello there, just checking in",
			expected: category.PriorityMedium,
		},
	}

	c := newClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Classify(tt.text)
			if got := c.DeterminePriority(tt.text, result); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}
