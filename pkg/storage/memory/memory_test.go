package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

func TestCreateRowRejectsTakenIdentifier(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.CreateRow(ctx, "posts", "hello", map[string]interface{}{"title": "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", first.Identifier())
	assert.Equal(t, "posts", first.Type())

	_, err = s.CreateRow(ctx, "posts", "hello", nil)
	require.ErrorIs(t, err, storage.ErrCollisionIdentifier)

	// a different type is a different namespace
	_, err = s.CreateRow(ctx, "clients", "hello", nil)
	require.NoError(t, err)
}

func TestCreateRowRequiresIdentifier(t *testing.T) {
	_, err := New().CreateRow(context.Background(), "posts", "", nil)
	require.ErrorIs(t, err, storage.ErrMissingIdentifier)
}

func TestConcurrentCreateRowHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := New()

	const writers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateRow(ctx, "posts", "same-title", nil)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, storage.ErrCollisionIdentifier)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestFindRows(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, err := s.CreateRow(ctx, "clients", "a@example.com", map[string]interface{}{"company": "Acme"})
	require.NoError(t, err)
	_, err = s.CreateRow(ctx, "clients", "b@example.com", map[string]interface{}{"company": "Globex"})
	require.NoError(t, err)

	rows, err := s.FindRows(ctx, "clients", storage.FieldIdentifier, "a@example.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID(), rows[0].ID())

	rows, err = s.FindRows(ctx, "clients", "company", "Globex")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b@example.com", rows[0].Identifier())

	rows, err = s.FindRows(ctx, "posts", storage.FieldIdentifier, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateRowMovesClaim(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, err := s.CreateRow(ctx, "posts", "first", nil)
	require.NoError(t, err)
	_, err = s.CreateRow(ctx, "posts", "second", nil)
	require.NoError(t, err)

	_, err = s.UpdateRow(ctx, "posts", a.ID(), "second", nil)
	require.ErrorIs(t, err, storage.ErrCollisionIdentifier)

	// keeping its own identifier is not a collision
	_, err = s.UpdateRow(ctx, "posts", a.ID(), "first", map[string]interface{}{"title": "First"})
	require.NoError(t, err)

	updated, err := s.UpdateRow(ctx, "posts", a.ID(), "third", nil)
	require.NoError(t, err)
	assert.Equal(t, "third", updated.Identifier())

	_, err = s.GetRow(ctx, "posts", "first")
	require.ErrorIs(t, err, storage.ErrNotFoundRow)
	_, err = s.CreateRow(ctx, "posts", "first", nil)
	require.NoError(t, err)

	_, err = s.UpdateRow(ctx, "posts", "posts_missing", "x", nil)
	require.ErrorIs(t, err, storage.ErrNotFoundRow)
}

func TestDeleteRowReleasesIdentifier(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, err := s.CreateRow(ctx, "posts", "gone", nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteRow(ctx, "posts", a.ID()))
	require.ErrorIs(t, s.DeleteRow(ctx, "posts", a.ID()), storage.ErrNotFoundRow)

	_, err = s.GetRowByID(ctx, "posts", a.ID())
	require.ErrorIs(t, err, storage.ErrNotFoundRow)
	_, err = s.CreateRow(ctx, "posts", "gone", nil)
	require.NoError(t, err)
}

func TestListRowsFiltersAndCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"go-tips", "rust-tips", "go-news"} {
		_, err := s.CreateRow(ctx, "posts", id, map[string]interface{}{"tags": []string{"x"}})
		require.NoError(t, err)
	}

	rows, err := s.ListRows(ctx, "posts", "go")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "go-news", rows[0].Identifier())
	assert.Equal(t, "go-tips", rows[1].Identifier())

	rows[0].Columns()["tags"].([]string)[0] = "mutated"
	again, err := s.GetRow(ctx, "posts", "go-news")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, again.Columns()["tags"])
}
