package query

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/manu156/redash-go/errors"
	"github.com/manu156/redash-go/value"
)

// Cursor is a forward-only, read-only iterator over a Result.
//
// A Cursor starts before the first row. Next moves it forward until the rows are exhausted, after which
// Next keeps returning false. Values can only be read while the Cursor is positioned on a row.
// A Cursor is not safe for concurrent use.
type Cursor struct {
	result  *Result
	pos     int
	closed  bool
	wasNull bool
}

// NewCursor returns a Cursor positioned before the first row of r. The Cursor takes ownership of r.
func NewCursor(r *Result) *Cursor {
	if r == nil {
		r = NewResult(nil, nil)
	}
	return &Cursor{result: r, pos: -1}
}

// Next advances to the next row and reports whether one is available.
func (c *Cursor) Next() bool {
	if c.closed {
		return false
	}
	if c.pos < c.result.Len() {
		c.pos++
	}
	return c.pos < c.result.Len()
}

// Columns returns the column metadata of the underlying result. It returns nil once the Cursor is closed.
func (c *Cursor) Columns() []Column {
	if c.closed {
		return nil
	}
	return c.result.Columns()
}

// Row returns the 1-based number of the current row, or 0 when the Cursor is not on a row.
func (c *Cursor) Row() int {
	if c.closed || c.pos < 0 || c.pos >= c.result.Len() {
		return 0
	}
	return c.pos + 1
}

// WasNull reports whether the last value read was null.
func (c *Cursor) WasNull() bool {
	return c.wasNull
}

// Close releases the result. It is safe to call more than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.pos = c.result.Len()
	c.result = NewResult(nil, nil)
	return nil
}

func (c *Cursor) current() (Row, error) {
	switch {
	case c.closed:
		return nil, errors.ES(errors.OpCursor, errors.KIllegalState, "cursor is closed")
	case c.pos < 0:
		return nil, errors.ES(errors.OpCursor, errors.KIllegalState, "no current row, call Next() first")
	case c.pos >= c.result.Len():
		return nil, errors.ES(errors.OpCursor, errors.KIllegalState, "no more rows available")
	}
	return c.result.rows[c.pos], nil
}

// raw returns the column called name and its raw value in the current row.
func (c *Cursor) raw(name string) (Column, interface{}, error) {
	row, err := c.current()
	if err != nil {
		return nil, nil, err
	}
	i, ok := c.result.ColumnIndex(name)
	if !ok {
		return nil, nil, errors.ES(errors.OpCursor, errors.KNotFound, "column %q not found", name)
	}
	v := row[name]
	c.wasNull = v == nil
	return c.result.columns[i], v, nil
}

func columnConversionError(name string, err error) error {
	msg := err.Error()
	if e, ok := err.(*errors.Error); ok {
		msg = e.Message()
	}
	return errors.ES(errors.OpCursor, errors.KConversion, "column %q: %s", name, msg)
}

// Value returns the value of column name converted by its declared type: int64 for integer,
// float64 for float, bool for boolean and string for everything else. Null cells return nil.
func (c *Cursor) Value(name string) (interface{}, error) {
	col, raw, err := c.raw(name)
	if err != nil {
		return nil, err
	}
	v, err := value.Coerce(col.Type(), raw)
	if err != nil {
		return nil, columnConversionError(name, err)
	}
	return v, nil
}

// ValueAt is Value for the column at ordinal i.
func (c *Cursor) ValueAt(i int) (interface{}, error) {
	if _, err := c.current(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.result.columns) {
		return nil, errors.ES(errors.OpCursor, errors.KNotFound, "column index %d out of range [0, %d)", i, len(c.result.columns))
	}
	return c.Value(c.result.columns[i].Name())
}

// Int64 returns column name as an int64. Null cells return 0 and set WasNull.
func (c *Cursor) Int64(name string) (int64, error) {
	_, raw, err := c.raw(name)
	if err != nil {
		return 0, err
	}
	v, err := value.Int64(raw)
	if err != nil {
		return 0, columnConversionError(name, err)
	}
	return v, nil
}

// Float64 returns column name as a float64. Null cells return 0 and set WasNull.
func (c *Cursor) Float64(name string) (float64, error) {
	_, raw, err := c.raw(name)
	if err != nil {
		return 0, err
	}
	v, err := value.Float64(raw)
	if err != nil {
		return 0, columnConversionError(name, err)
	}
	return v, nil
}

// Bool returns column name as a bool. Null cells return false and set WasNull.
func (c *Cursor) Bool(name string) (bool, error) {
	_, raw, err := c.raw(name)
	if err != nil {
		return false, err
	}
	v, err := value.Bool(raw)
	if err != nil {
		return false, columnConversionError(name, err)
	}
	return v, nil
}

// String returns column name as text. Null cells return "" and set WasNull.
func (c *Cursor) String(name string) (string, error) {
	_, raw, err := c.raw(name)
	if err != nil {
		return "", err
	}
	return value.String(raw), nil
}

// Time parses column name as a date or timestamp. Null cells return the zero time and set WasNull.
func (c *Cursor) Time(name string) (time.Time, error) {
	_, raw, err := c.raw(name)
	if err != nil {
		return time.Time{}, err
	}
	v, err := value.Time(raw)
	if err != nil {
		return time.Time{}, columnConversionError(name, err)
	}
	return v, nil
}

// Decimal returns column name as a decimal.Decimal. Null cells return decimal.Zero and set WasNull.
func (c *Cursor) Decimal(name string) (decimal.Decimal, error) {
	_, raw, err := c.raw(name)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := value.Decimal(raw)
	if err != nil {
		return decimal.Zero, columnConversionError(name, err)
	}
	return v, nil
}
