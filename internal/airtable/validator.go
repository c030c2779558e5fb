package airtable

import (
	"fmt"
	"regexp"
	"strings"
)

// recordIDPattern matches Airtable record identifiers: the literal
// "rec" prefix followed by alphanumerics only.
var recordIDPattern = regexp.MustCompile(`^rec[a-zA-Z0-9]+$`)

// Ruleset is the allow-list a proxy path must satisfy before it is
// forwarded upstream. One base, a fixed set of tables, optional record.
type Ruleset struct {
	AllowedBase   string
	AllowedTables []string
}

// NewRuleset returns a ruleset over the given base and table IDs.
func NewRuleset(base string, tables []string) *Ruleset {
	return &Ruleset{
		AllowedBase:   strings.TrimSpace(base),
		AllowedTables: tables,
	}
}

// ValidatePath checks a proxy path of the form base/table[/record]
// against the allow-list. Paths that fail come back with a short,
// client-safe reason. This is the barrier between the pass-through
// proxy and arbitrary upstream URLs, so it rejects traversal sequences
// outright before looking at individual segments.
func (r *Ruleset) ValidatePath(path string) error {
	if r == nil {
		return fmt.Errorf("no path rules configured")
	}

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return fmt.Errorf("path is required")
	}

	if strings.Contains(trimmed, "..") || strings.Contains(trimmed, "//") {
		return fmt.Errorf("invalid path")
	}

	segments := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(segments) < 2 || len(segments) > 3 {
		return fmt.Errorf("invalid path format")
	}

	if segments[0] != r.AllowedBase {
		return fmt.Errorf("invalid base")
	}

	if !r.tableAllowed(segments[1]) {
		return fmt.Errorf("invalid table")
	}

	if len(segments) == 3 && !recordIDPattern.MatchString(segments[2]) {
		return fmt.Errorf("invalid record ID")
	}

	return nil
}

func (r *Ruleset) tableAllowed(table string) bool {
	for _, allowed := range r.AllowedTables {
		if table == allowed {
			return true
		}
	}
	return false
}
