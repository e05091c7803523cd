package console

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/events"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/identifier"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage/memory"
)

var (
	admin  = Principal{UserID: "u-admin", Role: RoleAdmin}
	staff  = Principal{UserID: "u-staff", Role: RoleStaff}
	client = Principal{UserID: "u-client", Role: RoleClient}
	anon   = Principal{}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newConsole(t *testing.T) (*Console, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	return New(store, identifier.NewGenerator(store, 0, 10), pub), pub
}

func ptr(s string) *string { return &s }

func TestCreatePostDerivesSlug(t *testing.T) {
	c, pub := newConsole(t)
	ctx := context.Background()

	post, err := c.CreatePost(ctx, staff, PostInput{Title: "  Hello, World!  ", Tags: []string{"go", "Go", " "}})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, "Hello, World!", post.Title)
	assert.Equal(t, PostDraft, post.Status)
	assert.Equal(t, []string{"go"}, post.Tags)
	assert.Equal(t, staff.UserID, post.AuthorID)
	assert.Nil(t, post.PublishedAt)
	assert.Nil(t, post.Excerpt)
	assert.NotEmpty(t, post.ID)

	second, err := c.CreatePost(ctx, staff, PostInput{Title: "Hello World"})
	require.NoError(t, err)
	assert.Equal(t, "hello-world-1", second.Slug)

	got, err := c.GetPostBySlug(ctx, staff, "hello-world-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	assert.Equal(t, []string{"post.created", "post.created"}, pub.types())
}

func TestCreatePostFallbackSlug(t *testing.T) {
	c, _ := newConsole(t)
	post, err := c.CreatePost(context.Background(), admin, PostInput{Title: "!!!"})
	require.NoError(t, err)
	assert.Equal(t, "post", post.Slug)
}

func TestCreatePostValidation(t *testing.T) {
	c, pub := newConsole(t)
	ctx := context.Background()

	_, err := c.CreatePost(ctx, admin, PostInput{Title: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.CreatePost(ctx, admin, PostInput{Title: "x", Status: "pending"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, pub.types())
}

func TestPostAuthorization(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()

	for _, who := range []Principal{client, anon} {
		_, err := c.CreatePost(ctx, who, PostInput{Title: "Nope"})
		assert.ErrorIs(t, err, ErrForbidden)
	}

	post, err := c.CreatePost(ctx, admin, PostInput{Title: "Yes"})
	require.NoError(t, err)

	_, err = c.UpdatePost(ctx, client, post.ID, PostInput{Title: "Nope"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, c.DeletePost(ctx, client, post.ID), ErrForbidden)

	_, err = c.GetPost(ctx, staff, post.ID)
	assert.NoError(t, err)
}

func TestUnpublishedPostsAreHiddenFromPublic(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()

	draft, err := c.CreatePost(ctx, staff, PostInput{Title: "Go Draft"})
	require.NoError(t, err)
	live, err := c.CreatePost(ctx, staff, PostInput{Title: "Go Live", Status: PostPublished})
	require.NoError(t, err)
	archived, err := c.CreatePost(ctx, staff, PostInput{Title: "Go Old", Status: PostArchived})
	require.NoError(t, err)

	for _, who := range []Principal{anon, client} {
		for _, hidden := range []*Post{draft, archived} {
			_, err = c.GetPost(ctx, who, hidden.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = c.GetPostBySlug(ctx, who, hidden.Slug)
			assert.ErrorIs(t, err, ErrNotFound)
		}
		got, err := c.GetPostBySlug(ctx, who, live.Slug)
		require.NoError(t, err)
		assert.Equal(t, live.ID, got.ID)

		posts, err := c.ListPosts(ctx, who, "go-")
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, live.ID, posts[0].ID)
	}

	for _, who := range []Principal{admin, staff} {
		_, err = c.GetPost(ctx, who, draft.ID)
		assert.NoError(t, err)
		posts, err := c.ListPosts(ctx, who, "go-")
		require.NoError(t, err)
		assert.Len(t, posts, 3)
	}
}

func TestUpdatePostKeepsOwnSlug(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()

	post, err := c.CreatePost(ctx, staff, PostInput{Title: "Launch Notes"})
	require.NoError(t, err)

	updated, err := c.UpdatePost(ctx, staff, post.ID, PostInput{Title: "Launch Notes", Content: "v2"})
	require.NoError(t, err)
	assert.Equal(t, "launch-notes", updated.Slug)
	assert.Equal(t, "v2", updated.Content)

	// a different title that normalizes to the same slug is not a collision
	// with itself
	updated, err = c.UpdatePost(ctx, staff, post.ID, PostInput{Title: "Launch notes!"})
	require.NoError(t, err)
	assert.Equal(t, "launch-notes", updated.Slug)
}

func TestUpdatePostRenameMovesSlug(t *testing.T) {
	c, pub := newConsole(t)
	ctx := context.Background()

	first, err := c.CreatePost(ctx, staff, PostInput{Title: "Alpha"})
	require.NoError(t, err)
	_, err = c.CreatePost(ctx, staff, PostInput{Title: "Beta"})
	require.NoError(t, err)

	renamed, err := c.UpdatePost(ctx, staff, first.ID, PostInput{Title: "Beta", Status: PostPublished})
	require.NoError(t, err)
	assert.Equal(t, "beta-1", renamed.Slug)
	require.NotNil(t, renamed.PublishedAt)
	assert.True(t, first.CreatedAt.Equal(renamed.CreatedAt))

	// the old slug is free again
	free, err := c.PreviewIdentifier(ctx, staff, identifier.Posts, "Alpha", "")
	require.NoError(t, err)
	assert.Equal(t, "alpha", free)

	publishedAt := *renamed.PublishedAt
	again, err := c.UpdatePost(ctx, staff, first.ID, PostInput{Title: "Beta", Status: PostPublished})
	require.NoError(t, err)
	assert.True(t, publishedAt.Equal(*again.PublishedAt))

	assert.Equal(t, []string{"post.created", "post.created", "post.updated", "post.updated"}, pub.types())
}

func TestUpdatePostNotFound(t *testing.T) {
	c, _ := newConsole(t)
	_, err := c.UpdatePost(context.Background(), admin, "posts_missing", PostInput{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePostReleasesSlug(t *testing.T) {
	c, pub := newConsole(t)
	ctx := context.Background()

	post, err := c.CreatePost(ctx, admin, PostInput{Title: "Gone Soon"})
	require.NoError(t, err)
	require.NoError(t, c.DeletePost(ctx, admin, post.ID))

	_, err = c.GetPost(ctx, admin, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.DeletePost(ctx, admin, post.ID), ErrNotFound)

	again, err := c.CreatePost(ctx, admin, PostInput{Title: "Gone Soon"})
	require.NoError(t, err)
	assert.Equal(t, "gone-soon", again.Slug)
	assert.Contains(t, pub.types(), "post.deleted")
}

func TestListPostsFilters(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()
	for _, title := range []string{"Go Tips", "Rust Tips", "Go Tricks"} {
		_, err := c.CreatePost(ctx, staff, PostInput{Title: title})
		require.NoError(t, err)
	}

	posts, err := c.ListPosts(ctx, staff, "go-")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "go-tips", posts[0].Slug)
	assert.Equal(t, "go-tricks", posts[1].Slug)
}

func TestConcurrentCreatePostsGetDistinctSlugs(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()

	const n = 8
	slugs := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			post, err := c.CreatePost(ctx, staff, PostInput{Title: "Same Title"})
			errs[i] = err
			if err == nil {
				slugs[i] = post.Slug
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[slugs[i]], "duplicate slug %q", slugs[i])
		seen[slugs[i]] = true
	}
	assert.True(t, seen["same-title"])
}

func TestPublishFailureDoesNotFailSave(t *testing.T) {
	c, pub := newConsole(t)
	pub.err = errors.New("broker down")

	post, err := c.CreatePost(context.Background(), admin, PostInput{Title: "Still Saved"})
	require.NoError(t, err)
	_, err = c.GetPost(context.Background(), admin, post.ID)
	assert.NoError(t, err)
}

func TestCreateClient(t *testing.T) {
	c, pub := newConsole(t)
	ctx := context.Background()
	retainer := decimal.RequireFromString("1250.50")

	cl, err := c.CreateClient(ctx, admin, ClientInput{
		Name:            "Jane Doe",
		Email:           "  Jane@Example.com ",
		Company:         ptr("  "),
		Phone:           ptr("+254 700 000000"),
		MonthlyRetainer: &retainer,
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", cl.Email)
	assert.Equal(t, ClientProspect, cl.Status)
	assert.Nil(t, cl.Company)
	assert.Nil(t, cl.Notes)
	require.NotNil(t, cl.Phone)

	got, err := c.GetClientByEmail(ctx, staff, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, cl.ID, got.ID)
	assert.Nil(t, got.Company)
	require.NotNil(t, got.MonthlyRetainer)
	assert.True(t, retainer.Equal(*got.MonthlyRetainer))

	assert.Equal(t, []string{"client.created"}, pub.types())
}

func TestCreateClientDuplicateEmail(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()

	_, err := c.CreateClient(ctx, admin, ClientInput{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = c.CreateClient(ctx, admin, ClientInput{Name: "B", Email: "A@example.com"})
	assert.ErrorIs(t, err, identifier.ErrTaken)
}

func TestClientValidation(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()
	negative := decimal.NewFromInt(-1)

	for name, in := range map[string]ClientInput{
		"no name":           {Email: "a@example.com"},
		"no email":          {Name: "A"},
		"bad email":         {Name: "A", Email: "not-an-email"},
		"display name":      {Name: "A", Email: "A <a@example.com>"},
		"bad status":        {Name: "A", Email: "a@example.com", Status: "gold"},
		"negative retainer": {Name: "A", Email: "a@example.com", MonthlyRetainer: &negative},
	} {
		_, err := c.CreateClient(ctx, admin, in)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}
}

func TestClientAuthorization(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()

	_, err := c.CreateClient(ctx, staff, ClientInput{Name: "A", Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrForbidden)

	cl, err := c.CreateClient(ctx, admin, ClientInput{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = c.GetClient(ctx, staff, cl.ID)
	assert.NoError(t, err)
	_, err = c.GetClient(ctx, client, cl.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = c.ListClients(ctx, anon, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = c.UpdateClient(ctx, staff, cl.ID, ClientInput{Name: "A", Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, c.DeleteClient(ctx, staff, cl.ID), ErrForbidden)
}

func TestUpdateClientEmail(t *testing.T) {
	c, pub := newConsole(t)
	ctx := context.Background()

	a, err := c.CreateClient(ctx, admin, ClientInput{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = c.CreateClient(ctx, admin, ClientInput{Name: "B", Email: "b@example.com"})
	require.NoError(t, err)

	// keeping its own email is fine
	same, err := c.UpdateClient(ctx, admin, a.ID, ClientInput{Name: "A2", Email: "A@example.com", Status: ClientActive})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", same.Email)
	assert.Equal(t, ClientActive, same.Status)

	_, err = c.UpdateClient(ctx, admin, a.ID, ClientInput{Name: "A", Email: "b@example.com"})
	assert.ErrorIs(t, err, identifier.ErrTaken)

	moved, err := c.UpdateClient(ctx, admin, a.ID, ClientInput{Name: "A", Email: "c@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", moved.Email)

	_, err = c.GetClientByEmail(ctx, admin, "a@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := c.ListClients(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, c.DeleteClient(ctx, admin, a.ID))
	assert.Equal(t, []string{"client.created", "client.created", "client.updated", "client.updated", "client.deleted"}, pub.types())
}

func TestPreviewIdentifier(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()

	_, err := c.PreviewIdentifier(ctx, client, identifier.Posts, "x", "")
	assert.ErrorIs(t, err, ErrForbidden)

	post, err := c.CreatePost(ctx, staff, PostInput{Title: "Preview Me"})
	require.NoError(t, err)

	next, err := c.PreviewIdentifier(ctx, staff, identifier.Posts, "Preview Me", "")
	require.NoError(t, err)
	assert.Equal(t, "preview-me-1", next)

	own, err := c.PreviewIdentifier(ctx, staff, identifier.Posts, "Preview Me", post.ID)
	require.NoError(t, err)
	assert.Equal(t, "preview-me", own)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("staff")
	assert.True(t, ok)
	assert.Equal(t, RoleStaff, r)

	_, ok = ParseRole("root")
	assert.False(t, ok)
}
