package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/triage-desk/triage/internal/category"
)

const (
	// confidencePerMatch is the score contributed by each matching
	// keyword; the total saturates at 1.0.
	confidencePerMatch = 0.15

	// confidenceFloor is the minimum winning confidence; anything below
	// it is reported as "other" so a single incidental keyword hit never
	// looks like a confident classification.
	confidenceFloor = 0.25

	// otherConfidence is the fixed confidence reported for "other".
	otherConfidence = 0.15

	// textLimit bounds how much text is scanned, for cost control.
	textLimit = 5000
)

// Urgency indicators. Any hit forces priority "urgent" regardless of the
// category default.
var urgencyKeywords = []string{
	"urgent",
	"asap",
	"emergency",
	"critical",
	"immediately",
	"right away",
	"down",
	"production",
	"can't work",
	"cannot work",
	"can not work",
}

// Result is the outcome of classifying one ticket's text.
type Result struct {
	Category   string
	Confidence float64
	Priority   category.Priority
	Matches    int
}

// Classifier scores text against a fixed category table. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	defs []category.Definition
}

// New builds a classifier over the given table. The table's canonical
// order decides ties: the first category with the top score wins.
func New(table *category.Table) *Classifier {
	return &Classifier{defs: table.Definitions()}
}

// Classify counts keyword matches per category and returns the best one.
// Matching is case-insensitive substring containment; partial-word hits
// count (so "print" inside "sprint" votes for printer_issue).
func (c *Classifier) Classify(text string) Result {
	lower := strings.ToLower(boundText(text, textLimit))

	best := -1
	bestScore := 0
	for i := range c.defs {
		score := 0
		for _, kw := range c.defs[i].Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	confidence := float64(bestScore) * confidencePerMatch
	if confidence > 1.0 {
		confidence = 1.0
	}
	if best < 0 || confidence < confidenceFloor {
		return Result{
			Category:   category.Other,
			Confidence: otherConfidence,
			Priority:   category.PriorityMedium,
			Matches:    bestScore,
		}
	}

	return Result{
		Category:   c.defs[best].Key,
		Confidence: confidence,
		Priority:   c.defs[best].Priority,
		Matches:    bestScore,
	}
}

// DeterminePriority returns "urgent" when any urgency keyword appears in
// the text, otherwise the category's configured default.
func (c *Classifier) DeterminePriority(text string, result Result) category.Priority {
	lower := strings.ToLower(boundText(text, textLimit))
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			return category.PriorityUrgent
		}
	}
	if result.Priority != "" {
		return result.Priority
	}
	return category.PriorityMedium
}

// boundText returns at most n bytes of s without splitting a rune.
func boundText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
