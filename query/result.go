package query

import (
	"github.com/samber/lo"

	"github.com/manu156/redash-go/types"
)

// Row maps a column name to the raw JSON value of a cell. A nil value is a null cell.
type Row map[string]interface{}

// Result is a fully materialized query result: ordered columns and rows in the order the service
// returned them. Cell values are kept raw and are only converted when a Cursor reads them.
type Result struct {
	columns []Column
	rows    []Row
	index   map[string]int
}

// NewResult creates a Result. Every row is reshaped to exactly the column names: keys the columns
// do not name are dropped and missing keys become null.
func NewResult(columns []Column, rows []Row) *Result {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := index[c.Name()]; !ok {
			index[c.Name()] = i
		}
	}

	shaped := lo.Map(rows, func(r Row, _ int) Row {
		out := make(Row, len(columns))
		for _, c := range columns {
			out[c.Name()] = r[c.Name()]
		}
		return out
	})

	return &Result{columns: columns, rows: shaped, index: index}
}

// NewStringResult creates a single column Result of type string with one row per value.
func NewStringResult(name string, values []string) *Result {
	rows := lo.Map(values, func(v string, _ int) Row {
		return Row{name: v}
	})
	return NewResult([]Column{NewColumn(0, name, types.String)}, rows)
}

// Columns returns the columns of the result in order.
func (r *Result) Columns() []Column {
	return r.columns
}

// ColumnIndex returns the ordinal of the column called name.
func (r *Result) ColumnIndex(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Rows returns the rows of the result in order.
func (r *Result) Rows() []Row {
	return r.rows
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.rows)
}
