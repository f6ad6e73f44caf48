// Package query provides identifier validation and table allowlisting for
// the generic data gateway. Values are always passed as bound parameters;
// this package blocks structural injection through the identifier position
// (table names, column names, order keys), which parameterization cannot
// protect.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRegex validates SQL identifiers (column names, order keys).
// Must start with a letter or underscore, followed by alphanumeric or
// underscore.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxIdentifierLen bounds identifier length. Matches the platform schema,
// where no column name comes close to this.
const maxIdentifierLen = 64

// AllowedTables is the fixed allowlist of tables the gateway may touch.
// Anything else is rejected outright, even if storage-level permissions
// would allow it.
var AllowedTables = map[string]bool{
	"courses":                true,
	"course_phases":          true,
	"tutor_courses":          true,
	"enrollments":            true,
	"user_roles":             true,
	"profiles":               true,
	"enrollment_attempts":    true,
	"role_change_audit":      true,
	"lessons":                true,
	"assignments":            true,
	"assignment_submissions": true,
	"lesson_materials":       true,
	"lesson_progress":        true,
}

// ValidateTable ensures the table is a member of the fixed allowlist.
func ValidateTable(name string) error {
	if !AllowedTables[name] {
		return fmt.Errorf("table is not in the allowlist")
	}
	return nil
}

// ValidateIdentifier ensures a SQL identifier (column name, order key) is
// safe to splice into query text. It rejects empty strings, strings over
// 64 characters, and anything outside the identifier pattern.
func ValidateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("identifier too long (max %d chars)", maxIdentifierLen)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("identifier must match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	return nil
}

// ValidateIdentifiers validates multiple identifiers, returning the first
// error found.
func ValidateIdentifiers(names []string) error {
	for _, name := range names {
		if err := ValidateIdentifier(name); err != nil {
			return err
		}
	}
	return nil
}

// ParseProjection parses a comma-separated column list like "id,title,price"
// into validated column names. "*" or an empty string selects all columns.
func ParseProjection(sel string) ([]string, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" || sel == "*" {
		return nil, nil
	}

	parts := strings.Split(sel, ",")
	cols := make([]string, 0, len(parts))
	for _, part := range parts {
		col := strings.TrimSpace(part)
		if col == "" {
			continue
		}
		if err := ValidateIdentifier(col); err != nil {
			return nil, fmt.Errorf("invalid select column: %w", err)
		}
		cols = append(cols, col)
	}

	if len(cols) == 0 {
		return nil, nil
	}
	return cols, nil
}

// QuoteIdentifier returns a double-quoted SQL identifier. The identifier
// must already be validated; quoting is belt-and-suspenders for reserved
// words used as column names.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
