package identifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage/memory"
)

func seed(t *testing.T, s storage.RowStorer, coll Collection, identifiers ...string) []storage.Row {
	t.Helper()
	rows := make([]storage.Row, 0, len(identifiers))
	for _, id := range identifiers {
		row, err := s.CreateRow(context.Background(), coll.Name, id, nil)
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

type failingFinder struct{ err error }

func (f failingFinder) FindRows(context.Context, string, string, string) ([]storage.Row, error) {
	return nil, f.err
}

type countingFinder struct {
	storage.RowFinder
	calls int
}

func (f *countingFinder) FindRows(ctx context.Context, rowType, field, value string) ([]storage.Row, error) {
	f.calls++
	return f.RowFinder.FindRows(ctx, rowType, field, value)
}

func TestCheckerAvailable(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	rows := seed(t, s, Posts, "foo")
	checker := NewChecker(s)

	free, err := checker.Available(ctx, Posts, "bar", "")
	require.NoError(t, err)
	assert.True(t, free)

	free, err = checker.Available(ctx, Posts, "foo", "")
	require.NoError(t, err)
	assert.False(t, free)

	free, err = checker.Available(ctx, Posts, "foo", rows[0].ID())
	require.NoError(t, err)
	assert.True(t, free, "a record never conflicts with itself")

	free, err = checker.Available(ctx, Posts, "foo", "posts_someone-else")
	require.NoError(t, err)
	assert.False(t, free)

	_, err = checker.Available(ctx, Posts, "", "")
	require.ErrorIs(t, err, ErrEmptyCandidate)
}

func TestCheckerPropagatesStoreErrors(t *testing.T) {
	unreachable := errors.New("store unreachable")
	_, err := NewChecker(failingFinder{unreachable}).Available(context.Background(), Posts, "foo", "")
	require.ErrorIs(t, err, unreachable)

	_, err = NewGenerator(failingFinder{unreachable}, 0, 0).Generate(context.Background(), Posts, "Foo", "")
	require.ErrorIs(t, err, unreachable)
}

func TestGenerateFreePathHasNoSuffix(t *testing.T) {
	g := NewGenerator(memory.New(), 0, 0)
	got, err := g.Generate(context.Background(), Posts, "Ten Tips for Busy Founders", "")
	require.NoError(t, err)
	assert.Equal(t, "ten-tips-for-busy-founders", got)
}

func TestGenerateResolvesCollisions(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	g := NewGenerator(s, 0, 0)

	seed(t, s, Posts, "foo")
	got, err := g.Generate(ctx, Posts, "Foo!!", "")
	require.NoError(t, err)
	assert.Equal(t, "foo-1", got)

	seed(t, s, Posts, "foo-1")
	got, err = g.Generate(ctx, Posts, "Foo!!", "")
	require.NoError(t, err)
	assert.Equal(t, "foo-2", got)
}

func TestGenerateSelfExemption(t *testing.T) {
	s := memory.New()
	rows := seed(t, s, Posts, "foo")

	got, err := NewGenerator(s, 0, 0).Generate(context.Background(), Posts, "Foo", rows[0].ID())
	require.NoError(t, err)
	assert.Equal(t, "foo", got)
}

func TestGenerateNormalizesEquivalentSeeds(t *testing.T) {
	g := NewGenerator(memory.New(), 0, 0)
	for _, in := range []string{"Hello, World!", "hello   world", "HELLO-WORLD"} {
		got, err := g.Generate(context.Background(), Posts, in, "")
		require.NoError(t, err)
		assert.Equal(t, "hello-world", got, in)
	}
}

func TestGenerateIsScopedToCollection(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s, Clients, "foo")
	finder := &countingFinder{RowFinder: s}
	g := NewGenerator(finder, 0, 0)

	got, err := g.Generate(ctx, Posts, "foo", "")
	require.NoError(t, err)
	assert.Equal(t, "foo", got)
	assert.Equal(t, 1, finder.calls)

	seed(t, s, Posts, "jane@example.com")
	got, err = g.Generate(ctx, Clients, "jane@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got)
}

func TestGenerateFallbackForEmptySeed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	g := NewGenerator(s, 0, 0)

	got, err := g.Generate(ctx, Posts, "!!!", "")
	require.NoError(t, err)
	assert.Equal(t, "post", got)

	_, err = g.Generate(ctx, Clients, "   ", "")
	require.ErrorIs(t, err, ErrEmptyCandidate)
}

func TestGenerateIsBounded(t *testing.T) {
	s := memory.New()
	seed(t, s, Posts, "busy", "busy-1", "busy-2")

	_, err := NewGenerator(s, 3, 0).Generate(context.Background(), Posts, "Busy", "")
	require.ErrorIs(t, err, ErrExhausted)

	got, err := NewGenerator(s, 4, 0).Generate(context.Background(), Posts, "Busy", "")
	require.NoError(t, err)
	assert.Equal(t, "busy-3", got)
}

func TestGenerateExactPolicy(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	rows := seed(t, s, Clients, "jane@example.com")
	g := NewGenerator(s, 0, 0)

	got, err := g.Generate(ctx, Clients, "  John@Example.com ", "")
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", got)

	_, err = g.Generate(ctx, Clients, "JANE@example.com", "")
	require.ErrorIs(t, err, ErrTaken)

	got, err = g.Generate(ctx, Clients, "jane@example.com", rows[0].ID())
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got)
}

func TestAllocateMovesPastConcurrentWinner(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	g := NewGenerator(s, 0, 0)

	claims := []string{}
	claim := func(ctx context.Context, id string) error {
		claims = append(claims, id)
		if len(claims) == 1 {
			// another request saves the same title between our check and write
			_, err := s.CreateRow(ctx, Posts.Name, id, nil)
			require.NoError(t, err)
		}
		_, err := s.CreateRow(ctx, Posts.Name, id, nil)
		return err
	}

	got, err := g.Allocate(ctx, Posts, "Same Title", "", claim)
	require.NoError(t, err)
	assert.Equal(t, "same-title-1", got)
	assert.Equal(t, []string{"same-title", "same-title-1"}, claims)
}

func TestAllocateConcurrentSameSeed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	const writers = 8
	g := NewGenerator(s, 0, writers)

	var wg sync.WaitGroup
	results := make([]string, writers)
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.Allocate(ctx, Posts, "Same Title", "", func(ctx context.Context, id string) error {
				_, err := s.CreateRow(ctx, Posts.Name, id, nil)
				return err
			})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i]], "identifier %q handed out twice", results[i])
		seen[results[i]] = true
	}
	assert.True(t, seen["same-title"])

	rows, err := s.ListRows(ctx, Posts.Name, "")
	require.NoError(t, err)
	assert.Len(t, rows, writers)
}

func TestAllocateGivesUpAfterRepeatedLosses(t *testing.T) {
	g := NewGenerator(memory.New(), 0, 2)
	calls := 0
	_, err := g.Allocate(context.Background(), Posts, "Hot", "", func(context.Context, string) error {
		calls++
		return fmt.Errorf("%w: simulated", storage.ErrCollisionIdentifier)
	})
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, calls)
}

func TestAllocateExactPolicyReportsTaken(t *testing.T) {
	g := NewGenerator(memory.New(), 0, 0)
	_, err := g.Allocate(context.Background(), Clients, "jane@example.com", "", func(context.Context, string) error {
		return storage.ErrCollisionIdentifier
	})
	require.ErrorIs(t, err, ErrTaken)
}

func TestAllocatePassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("write failed")
	g := NewGenerator(memory.New(), 0, 0)
	_, err := g.Allocate(context.Background(), Posts, "Anything", "", func(context.Context, string) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestLookup(t *testing.T) {
	c, ok := Lookup("posts")
	require.True(t, ok)
	assert.Equal(t, PolicySuffix, c.Policy)

	_, ok = Lookup("invoices")
	assert.False(t, ok)
}
