package storage

import (
	"context"
	"errors"
)

// FieldIdentifier names the indexed, collection-unique key of a row. Any
// other field name passed to FindRows refers to a column.
const FieldIdentifier = "identifier"

var (
	ErrCollisionIdentifier    = errors.New("a row with that type and identifier already exists")
	ErrConcurrentModification = errors.New("row was modified concurrently")
	ErrMissingIdentifier      = errors.New("row identifier is required")
	ErrNotFoundRow            = errors.New("row not found")
	ErrTooManyFound           = errors.New("multiple exist where there must only be one")
)

type Row interface {
	Type() string
	ID() string
	Identifier() string
	Columns() map[string]interface{}
}

type RowFinder interface {
	FindRows(ctx context.Context, rowType, field, value string) ([]Row, error)
}

// RowStorer is the backing document store. CreateRow and UpdateRow claim the
// identifier atomically: they fail with ErrCollisionIdentifier instead of
// writing when another row of the same type already holds it.
type RowStorer interface {
	RowFinder
	GetRowByID(ctx context.Context, rowType, rowID string) (Row, error)
	GetRow(ctx context.Context, rowType, identifier string) (Row, error)
	ListRows(ctx context.Context, rowType, identifierFilter string) ([]Row, error)
	CreateRow(ctx context.Context, rowType, identifier string, columns map[string]interface{}) (Row, error)
	UpdateRow(ctx context.Context, rowType, rowID, newIdentifier string, columns map[string]interface{}) (Row, error)
	DeleteRow(ctx context.Context, rowType, rowID string) error
}

// StaticRow is a plain Row value for backends that don't carry their own
// row type.
type StaticRow struct {
	RowType       string
	RowID         string
	RowIdentifier string
	RowColumns    map[string]interface{}
}

func (r *StaticRow) Type() string                    { return r.RowType }
func (r *StaticRow) ID() string                      { return r.RowID }
func (r *StaticRow) Identifier() string              { return r.RowIdentifier }
func (r *StaticRow) Columns() map[string]interface{} { return r.RowColumns }

// CopyColumns returns a shallow copy of columns with string slices cloned and
// nil or empty values dropped, so absent optional fields stay absent.
func CopyColumns(columns map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(columns))
	for k, v := range columns {
		switch value := v.(type) {
		case nil:
		case string:
			if value != "" {
				out[k] = value
			}
		case []string:
			if len(value) > 0 {
				out[k] = append([]string(nil), value...)
			}
		default:
			out[k] = value
		}
	}
	return out
}
