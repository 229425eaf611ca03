package export

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/triage-desk/triage/internal/ticket"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// Defensive caps applied before a field reaches the report template.
// They sit far above the sizes the input contract allows through, so
// ordinary records are never truncated.
const (
	maxIDLen       = 100
	maxSenderLen   = 200
	maxSubjectLen  = 500
	maxBodyLen     = 10000
	maxInsightsLen = 2000
)

// JSON serializes a record with stable field ordering and indentation.
// All fields round-trip losslessly through ParseJSON.
func JSON(rec ticket.Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ticket: %w", err)
	}
	return data, nil
}

// ParseJSON reads a record back from its JSON export.
func ParseJSON(data []byte) (ticket.Record, error) {
	var rec ticket.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return ticket.Record{}, fmt.Errorf("failed to parse ticket export: %w", err)
	}
	return rec, nil
}

// Engine renders plain-text ticket reports.
type Engine struct {
	report *template.Template
}

// NewEngine loads the embedded report template.
func NewEngine() (*Engine, error) {
	content, err := embeddedTemplates.ReadFile("templates/report.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded report template: %w", err)
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"percent": func(confidence float64) string {
			return fmt.Sprintf("%.0f%%", confidence*100)
		},
	}).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}

	return &Engine{report: tmpl}, nil
}

// Report renders the fixed-layout plain-text report for a record.
func (e *Engine) Report(rec ticket.Record) (string, error) {
	data := rec
	data.TicketID = truncate(rec.TicketID, maxIDLen)
	data.From = truncate(rec.From, maxSenderLen)
	data.Subject = truncate(rec.Subject, maxSubjectLen)
	data.Body = truncate(rec.Body, maxBodyLen)
	data.Insights = truncate(rec.Insights, maxInsightsLen)

	var buf bytes.Buffer
	if err := e.report.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// truncate caps a string at n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
