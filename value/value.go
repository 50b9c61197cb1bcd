/*
Package value converts the loosely typed cells of a Redash result into Go values.

Redash sends every cell as plain JSON. A result is decoded with number preservation, so a raw
cell is one of:

	nil          - JSON null or a missing key
	json.Number  - any JSON number
	string
	bool
	[]interface{} or map[string]interface{} - nested JSON

Coerce applies the rule for a column's declared types.Column. The remaining functions convert a raw
cell to a specific Go type regardless of the declared type and back the typed accessors of
query.Cursor. A nil raw value always converts to the zero value without an error; callers track
nullness themselves.

Conversions never happen when a result is materialized, only when a value is read, so a bad cell
only fails the read that touches it.
*/
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/manu156/redash-go/errors"
	"github.com/manu156/redash-go/types"
)

// Coerce converts raw to the Go type for column type t:
// Integer to int64, Float to float64, Boolean to bool and every other type to string.
// A nil raw value returns nil.
func Coerce(t types.Column, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	switch t {
	case types.Integer:
		return Int64(raw)
	case types.Float:
		return Float64(raw)
	case types.Boolean:
		return Bool(raw)
	default:
		return String(raw), nil
	}
}

func conversionError(raw interface{}, to string) *errors.Error {
	return errors.ES(errors.OpCursor, errors.KConversion, "cannot convert %T(%v) to %s", raw, raw, to)
}

// Int64 converts raw to an int64. Floating point input must represent a whole number.
func Int64(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, conversionError(raw, "int64")
		}
		return wholeNumber(raw, f)
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, conversionError(raw, "int64")
		}
		return wholeNumber(raw, f)
	case float64:
		return wholeNumber(raw, v)
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, conversionError(raw, "int64")
	}
}

func wholeNumber(raw interface{}, f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.ES(errors.OpCursor, errors.KConversion, "value %v did not represent a whole number", raw)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, errors.ES(errors.OpCursor, errors.KConversion, "value %v overflows int64", raw)
	}
	return int64(f), nil
}

// Float64 converts raw to a float64.
func Float64(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, conversionError(raw, "float64")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, conversionError(raw, "float64")
		}
		return f, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, conversionError(raw, "float64")
	}
}

// Bool converts raw to a bool. Strings may be true/false, t/f, yes/no or 1/0 in any case and
// numbers are true when they are not zero.
func Bool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "t", "yes", "y", "1":
			return true, nil
		case "false", "f", "no", "n", "0":
			return false, nil
		}
		return false, conversionError(raw, "bool")
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return false, conversionError(raw, "bool")
		}
		return f != 0, nil
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	default:
		return false, conversionError(raw, "bool")
	}
}

// String converts raw to its text form. Nested JSON is re-encoded.
func String(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// timeLayouts are tried in order. Redash emits ISO 8601 from most query runners, but some runners
// send a space separated timestamp or a bare date.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Time converts raw to a time.Time. Values without a zone are read as UTC.
func Time(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, conversionError(raw, "time.Time")
	default:
		return time.Time{}, conversionError(raw, "time.Time")
	}
}

// Decimal converts raw to a decimal.Decimal without going through float64 when the input is text.
func Decimal(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, conversionError(raw, "decimal")
		}
		return d, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, conversionError(raw, "decimal")
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return decimal.Zero, conversionError(raw, "decimal")
	}
}
