package containers

import "regexp"

// validTableNameRe matches identifier names that are safe to interpolate
// into TRUNCATE statements: letters, digits, underscore, dollar sign, not
// starting with a digit. Both MySQL and Postgres accept these unquoted.
var validTableNameRe = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

// isValidTableName validates that a table name contains only safe
// characters.
func isValidTableName(name string) bool {
	if name == "" {
		return false
	}
	return validTableNameRe.MatchString(name)
}
