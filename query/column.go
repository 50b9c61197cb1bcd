package query

import "github.com/manu156/redash-go/types"

// Column describes one column of a Result.
type Column interface {
	Ordinal() int
	Name() string
	Type() types.Column
}

// column is a basic implementation of Column.
type column struct {
	ordinal    int
	name       string
	redashType types.Column
}

func (c column) Ordinal() int {
	return c.ordinal
}

func (c column) Name() string {
	return c.name
}

func (c column) Type() types.Column {
	return c.redashType
}

// NewColumn creates a Column. Unrecognized types are stored as types.String.
func NewColumn(ordinal int, name string, redashType types.Column) Column {
	if !redashType.Valid() {
		redashType = types.String
	}
	return &column{
		ordinal:    ordinal,
		name:       name,
		redashType: redashType,
	}
}
