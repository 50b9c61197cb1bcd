// Package types holds the semantic column types that Redash reports for a query result.
package types

import "strings"

// Column represents a type of column defined for a Redash result.
type Column string

// These constants represent the value type stored in a Column.
const (
	// Integer indicates that a Column stores whole numbers.
	Integer Column = "integer"
	// Float indicates that a Column stores floating point numbers.
	Float Column = "float"
	// Boolean indicates that a Column stores a boolean.
	Boolean Column = "boolean"
	// String indicates that a Column stores text. Unrecognized tags are treated as String.
	String Column = "string"
	// Date indicates that a Column stores a calendar date as text.
	Date Column = "date"
	// DateTime indicates that a Column stores a timestamp as text.
	DateTime Column = "datetime"
)

var valid = map[Column]bool{
	Integer:  true,
	Float:    true,
	Boolean:  true,
	String:   true,
	Date:     true,
	DateTime: true,
}

// Valid returns true if the Column is a known type.
func (c Column) Valid() bool {
	return valid[c]
}

// Parse maps a type tag as sent by the service to a Column. Matching is case-insensitive and
// any tag that is not recognized becomes String.
func Parse(tag string) Column {
	c := Column(strings.ToLower(strings.TrimSpace(tag)))
	if c.Valid() {
		return c
	}
	return String
}

// DatabaseTypeName returns the upper case name used by database/sql column metadata.
func (c Column) DatabaseTypeName() string {
	return strings.ToUpper(string(c))
}

// IsTemporal reports whether values of the Column are dates or timestamps.
func (c Column) IsTemporal() bool {
	return c == Date || c == DateTime
}

// IsNumeric reports whether values of the Column are numbers.
func (c Column) IsNumeric() bool {
	return c == Integer || c == Float
}
