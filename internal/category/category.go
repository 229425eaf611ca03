package category

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Priority is the urgency tier assigned to a ticket.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Other is the sentinel category for tickets that match nothing with
// enough confidence.
const Other = "other"

// Definition is one configured category: a key, the keywords that vote
// for it, and the priority a ticket gets when no urgency override fires.
type Definition struct {
	Key      string   `yaml:"key" validate:"required"`
	Keywords []string `yaml:"keywords" validate:"required,min=1,dive,required"`
	Priority Priority `yaml:"priority" validate:"required,oneof=low medium high urgent"`
}

// Table is the read-only category configuration. Iteration order is the
// order definitions were declared in; classification tie-breaks depend on
// it, so it never varies after load.
type Table struct {
	defs []Definition
}

var validate = validator.New()

// Default returns the built-in category table in canonical order.
func Default() *Table {
	t, err := NewTable([]Definition{
		{
			Key:      "password_reset",
			Keywords: []string{"password", "reset", "locked out", "login", "log in", "sign in", "account", "credentials", "forgot", "access"},
			Priority: PriorityHigh,
		},
		{
			Key:      "software_install",
			Keywords: []string{"install", "software", "application", "license", "update", "upgrade", "download", "program"},
			Priority: PriorityMedium,
		},
		{
			Key:      "hardware_failure",
			Keywords: []string{"laptop", "computer", "screen", "keyboard", "monitor", "battery", "broken", "won't turn on", "hardware", "replacement"},
			Priority: PriorityHigh,
		},
		{
			Key:      "network_issue",
			Keywords: []string{"network", "wifi", "wi-fi", "internet", "connection", "vpn", "ethernet", "offline", "disconnect", "slow"},
			Priority: PriorityHigh,
		},
		{
			Key:      "printer_issue",
			Keywords: []string{"printer", "print", "toner", "scanner", "scan", "paper jam", "cartridge"},
			Priority: PriorityLow,
		},
		{
			Key:      "email_issue",
			Keywords: []string{"email", "outlook", "inbox", "mailbox", "calendar", "attachment", "spam", "bounce"},
			Priority: PriorityMedium,
		},
		{
			Key:      "access_request",
			Keywords: []string{"permission", "shared drive", "folder access", "grant", "authorization", "new hire", "onboarding"},
			Priority: PriorityMedium,
		},
		{
			Key:      "billing_question",
			Keywords: []string{"invoice", "billing", "charge", "payment", "refund", "subscription", "renewal"},
			Priority: PriorityLow,
		},
	})
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return t
}

// NewTable validates definitions and builds a table. Keywords are
// lower-cased so classification can compare without re-folding.
func NewTable(defs []Definition) (*Table, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("category table is empty")
	}

	seen := make(map[string]bool, len(defs))
	out := make([]Definition, 0, len(defs))
	for i, d := range defs {
		if err := validate.Struct(d); err != nil {
			return nil, fmt.Errorf("category %d (%s): %w", i, d.Key, err)
		}
		key := strings.ToLower(strings.TrimSpace(d.Key))
		if seen[key] {
			return nil, fmt.Errorf("duplicate category key %q", key)
		}
		if key == Other {
			return nil, fmt.Errorf("category key %q is reserved", Other)
		}
		seen[key] = true

		keywords := make([]string, len(d.Keywords))
		for j, kw := range d.Keywords {
			keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
		out = append(out, Definition{Key: key, Keywords: keywords, Priority: d.Priority})
	}

	return &Table{defs: out}, nil
}

// categoryFile is the YAML shape of a category override file.
type categoryFile struct {
	Categories []Definition `yaml:"categories"`
}

// LoadFromFile reads a category table from a YAML file. The file replaces
// the built-in table entirely; file order is the canonical order.
func LoadFromFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category file: %w", err)
	}

	var f categoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse category file: %w", err)
	}

	t, err := NewTable(f.Categories)
	if err != nil {
		return nil, fmt.Errorf("invalid category file %s: %w", path, err)
	}
	return t, nil
}

// Definitions returns a copy of the table in canonical order. Callers get
// their own slice so the shared table stays immutable.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, len(t.defs))
	copy(out, t.defs)
	return out
}

// Len returns the number of configured categories.
func (t *Table) Len() int { return len(t.defs) }

// DefaultPriority returns the configured priority for a category key, or
// medium when the key is unknown (including the "other" sentinel).
func (t *Table) DefaultPriority(key string) Priority {
	key = strings.ToLower(key)
	for i := range t.defs {
		if t.defs[i].Key == key {
			return t.defs[i].Priority
		}
	}
	return PriorityMedium
}

// Contains reports whether a category key is configured.
func (t *Table) Contains(key string) bool {
	key = strings.ToLower(key)
	for i := range t.defs {
		if t.defs[i].Key == key {
			return true
		}
	}
	return false
}
