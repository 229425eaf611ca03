package ticket

import (
	"crypto/rand"
	"fmt"
	"html"
	"math"
	mrand "math/rand"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/triage-desk/triage/internal/category"
	"github.com/triage-desk/triage/internal/classify"
)

const (
	idPrefix     = "TKT"
	idRandomLen  = 6
	base36Digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	briefBodyLen    = 50
	detailedBodyLen = 500

	noInsights = "No additional insights available."
)

// Record is the result of parsing one support email. It is created once
// per parse and never mutated afterwards; ownership passes entirely to
// the caller.
type Record struct {
	TicketID      string            `json:"ticketId"`
	From          string            `json:"from"`
	Subject       string            `json:"subject"`
	Body          string            `json:"body"`
	Category      string            `json:"category"`
	CategoryLabel string            `json:"categoryLabel"`
	Priority      category.Priority `json:"priority"`
	Confidence    float64           `json:"confidence"`
	Timestamp     string            `json:"timestamp"`
	Insights      string            `json:"insights"`
}

// Assemble composes the final record from the pipeline's intermediate
// results, generating the identifier and timestamp at this point.
func Assemble(from, subject, body string, result classify.Result, priority category.Priority) Record {
	label := Label(result.Category)
	return Record{
		TicketID:      NewID(),
		From:          from,
		Subject:       subject,
		Body:          body,
		Category:      result.Category,
		CategoryLabel: label,
		Priority:      priority,
		Confidence:    result.Confidence,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Insights:      insights(label, body, result, priority),
	}
}

// NewID generates a ticket identifier: a fixed prefix, the current time
// in milliseconds as base 36, and a random base-36 suffix. The suffix is
// drawn from crypto/rand; math/rand is only a degraded fallback when the
// secure source fails.
func NewID() string {
	ms := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return fmt.Sprintf("%s-%s-%s", idPrefix, ms, randomSuffix(idRandomLen))
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		for i := range buf {
			buf[i] = byte(mrand.Intn(256))
		}
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36Digits[int(b)%len(base36Digits)]
	}
	return string(out)
}

// Label derives the human-readable label from a category key: underscores
// become spaces, words are capitalized, and HTML-significant characters
// are entity-escaped. The key always comes from the fixed configuration,
// the escaping protects any renderer that treats the label as markup.
func Label(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return html.EscapeString(strings.Join(words, " "))
}

// Canned follow-up suggestions, restricted to a fixed allow-list of keys.
var suggestions = map[string]string{
	"password_reset":   "Consider sending a self-service password reset link.",
	"software_install": "Check whether the user has administrator rights before installing.",
	"network_issue":    "Ask the user to check the physical connection and restart the router.",
}

func insights(label, body string, result classify.Result, priority category.Priority) string {
	var lines []string

	if result.Category != category.Other {
		lines = append(lines, fmt.Sprintf("Categorized as %s with %d%% confidence.", label, confidencePercent(result.Confidence)))
	}
	if priority == category.PriorityUrgent {
		lines = append(lines, "Urgency indicators detected - prioritize this ticket.")
	}

	bodyLen := utf8.RuneCountInString(body)
	if bodyLen < briefBodyLen {
		lines = append(lines, "Very brief description - may need follow-up for details.")
	} else if bodyLen > detailedBodyLen {
		lines = append(lines, "Detailed description provided.")
	}

	if s, ok := suggestions[result.Category]; ok {
		lines = append(lines, s)
	}

	if len(lines) == 0 {
		return noInsights
	}
	return strings.Join(lines, "\n")
}

// confidencePercent rounds a confidence score to an integer percentage
// clamped to [0, 100].
func confidencePercent(confidence float64) int {
	pct := int(math.Round(confidence * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
