package vtiger

import (
	"fmt"
	"strings"
)

// QuoteValue wraps a value for safe interpolation into a VQL string literal,
// escaping backslashes and single quotes. The original connector interpolated
// raw values; quoting here closes that injection hole for the queries this
// package builds itself.
func QuoteValue(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

// SelectByField builds the single-record lookup query used by RetrieveByEmail.
func SelectByField(module, field, value string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE %s = %s LIMIT 1;", module, field, QuoteValue(value))
}
