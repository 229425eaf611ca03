// Package triage turns a raw support email blob into a structured ticket
// record. The pipeline is a pure function of its input plus the fixed
// category table; a parse either returns a complete record or fails with
// no partial result.
package triage

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/triage-desk/triage/internal/category"
	"github.com/triage-desk/triage/internal/classify"
	"github.com/triage-desk/triage/internal/extract"
	"github.com/triage-desk/triage/internal/ticket"
)

// MaxInputChars is the largest accepted input, in characters.
const MaxInputChars = 100000

// maxErrorLen bounds error text shown on untrusted display surfaces.
const maxErrorLen = 200

var (
	// ErrInvalidInput marks input that fails validation before any
	// extraction runs: missing, empty after trimming, not UTF-8, or
	// over the size limit.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtractionFailure marks input whose body is empty after every
	// fallback rule.
	ErrExtractionFailure = errors.New("could not extract a ticket body")
)

// Parser runs the classification pipeline. It is safe for concurrent use;
// the only external interactions are the clock and the random source used
// for ticket identifiers.
type Parser struct {
	classifier *classify.Classifier
}

// NewParser builds a parser over a category table.
func NewParser(table *category.Table) *Parser {
	return &Parser{classifier: classify.New(table)}
}

// Parse validates the input, extracts headers and body, classifies the
// text and assembles the final record.
func (p *Parser) Parse(text string) (*ticket.Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(text); n > MaxInputChars {
		return nil, fmt.Errorf("%w: text is %d characters, maximum is %d", ErrInvalidInput, n, MaxInputChars)
	}

	msg := extract.Parse(text)
	if msg.Body == "" {
		return nil, fmt.Errorf("%w: no body found", ErrExtractionFailure)
	}

	combined := msg.Subject + "\n" + msg.Body
	result := p.classifier.Classify(combined)
	priority := p.classifier.DeterminePriority(combined, result)

	rec := ticket.Assemble(msg.From, msg.Subject, msg.Body, result, priority)
	return &rec, nil
}

// SanitizeError returns error text safe to surface to a display layer.
// Anything longer than the bound is replaced with a generic message so
// internal detail cannot leak.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorLen {
		return "invalid format"
	}
	return msg
}
