// Package memory is an in-process RowStorer. It honours the same
// insert-if-absent contract as the database backends, which makes it the
// store of choice for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/slug"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

type Store struct {
	mu sync.RWMutex
	// rowType -> rowID -> row
	rows map[string]map[string]*storage.StaticRow
	// rowType -> identifier -> rowID
	claims map[string]map[string]string
}

var _ storage.RowStorer = &Store{}

func New() *Store {
	return &Store{
		rows:   make(map[string]map[string]*storage.StaticRow),
		claims: make(map[string]map[string]string),
	}
}

func (s *Store) FindRows(ctx context.Context, rowType, field, value string) ([]storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("FindRows %q %q %q", rowType, field, value))
	s.mu.RLock()
	defer s.mu.RUnlock()

	if field == storage.FieldIdentifier {
		id, ok := s.claims[rowType][value]
		if !ok {
			return []storage.Row{}, nil
		}
		return []storage.Row{copyRow(s.rows[rowType][id])}, nil
	}

	found := []storage.Row{}
	for _, r := range s.sorted(rowType) {
		if v, ok := r.RowColumns[field].(string); ok && v == value {
			found = append(found, copyRow(r))
		}
	}
	return found, nil
}

func (s *Store) GetRowByID(ctx context.Context, rowType, rowID string) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("GetRowByID %q", rowID))
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[rowType][rowID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFoundRow, rowID)
	}
	return copyRow(r), nil
}

func (s *Store) GetRow(ctx context.Context, rowType, identifier string) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("GetRow %q %q", rowType, identifier))
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.claims[rowType][identifier]
	if !ok {
		return nil, fmt.Errorf("%w: type %q and identifier %q", storage.ErrNotFoundRow, rowType, identifier)
	}
	return copyRow(s.rows[rowType][id]), nil
}

func (s *Store) ListRows(ctx context.Context, rowType, identifierFilter string) ([]storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("ListRows %q %q", rowType, identifierFilter))
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := []storage.Row{}
	for _, r := range s.sorted(rowType) {
		if identifierFilter != "" && !strings.Contains(r.RowIdentifier, identifierFilter) {
			continue
		}
		rows = append(rows, copyRow(r))
	}
	return rows, nil
}

func (s *Store) CreateRow(ctx context.Context, rowType, identifier string, columns map[string]interface{}) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("CreateRow %q %q", rowType, identifier))
	if identifier == "" {
		return nil, storage.ErrMissingIdentifier
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.claims[rowType][identifier]; taken {
		return nil, fmt.Errorf("%w: type %q and identifier %q", storage.ErrCollisionIdentifier, rowType, identifier)
	}

	r := &storage.StaticRow{
		RowType:       rowType,
		RowID:         slug.NewID(rowType),
		RowIdentifier: identifier,
		RowColumns:    storage.CopyColumns(columns),
	}
	if s.rows[rowType] == nil {
		s.rows[rowType] = make(map[string]*storage.StaticRow)
		s.claims[rowType] = make(map[string]string)
	}
	s.rows[rowType][r.RowID] = r
	s.claims[rowType][identifier] = r.RowID
	return copyRow(r), nil
}

func (s *Store) UpdateRow(ctx context.Context, rowType, rowID, newIdentifier string, columns map[string]interface{}) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("UpdateRow %q %q %q", rowType, rowID, newIdentifier))
	if newIdentifier == "" {
		return nil, storage.ErrMissingIdentifier
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[rowType][rowID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFoundRow, rowID)
	}
	if owner, taken := s.claims[rowType][newIdentifier]; taken && owner != rowID {
		return nil, fmt.Errorf("%w: type %q and identifier %q", storage.ErrCollisionIdentifier, rowType, newIdentifier)
	}

	delete(s.claims[rowType], r.RowIdentifier)
	s.claims[rowType][newIdentifier] = rowID
	r.RowIdentifier = newIdentifier
	r.RowColumns = storage.CopyColumns(columns)
	return copyRow(r), nil
}

func (s *Store) DeleteRow(ctx context.Context, rowType, rowID string) error {
	tflog.Debug(ctx, fmt.Sprintf("DeleteRow %q %q", rowType, rowID))
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[rowType][rowID]
	if !ok {
		return fmt.Errorf("%w: %q", storage.ErrNotFoundRow, rowID)
	}
	delete(s.claims[rowType], r.RowIdentifier)
	delete(s.rows[rowType], rowID)
	return nil
}

// sorted must be called with s.mu held.
func (s *Store) sorted(rowType string) []*storage.StaticRow {
	rows := make([]*storage.StaticRow, 0, len(s.rows[rowType]))
	for _, r := range s.rows[rowType] {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RowIdentifier < rows[j].RowIdentifier })
	return rows
}

func copyRow(r *storage.StaticRow) *storage.StaticRow {
	return &storage.StaticRow{
		RowType:       r.RowType,
		RowID:         r.RowID,
		RowIdentifier: r.RowIdentifier,
		RowColumns:    storage.CopyColumns(r.RowColumns),
	}
}
