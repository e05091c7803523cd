package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/events"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/identifier"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
	PostArchived  PostStatus = "archived"
)

func (s PostStatus) Valid() bool {
	switch s {
	case PostDraft, PostPublished, PostArchived:
		return true
	}
	return false
}

const (
	maxTitleLength = 200

	postColTitle       = "title"
	postColContent     = "content"
	postColExcerpt     = "excerpt"
	postColStatus      = "status"
	postColTags        = "tags"
	postColCoverImage  = "cover_image_url"
	postColAuthorID    = "author_id"
	postColCreatedAt   = "created_at"
	postColUpdatedAt   = "updated_at"
	postColPublishedAt = "published_at"
)

type Post struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Content       string     `json:"content"`
	Excerpt       *string    `json:"excerpt"`
	Status        PostStatus `json:"status"`
	Tags          []string   `json:"tags"`
	CoverImageURL *string    `json:"cover_image_url"`
	AuthorID      string     `json:"author_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PublishedAt   *time.Time `json:"published_at"`
}

type PostInput struct {
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Excerpt       *string    `json:"excerpt"`
	Status        PostStatus `json:"status"`
	Tags          []string   `json:"tags"`
	CoverImageURL *string    `json:"cover_image_url"`
}

func (in PostInput) clean() (PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = optional(in.Excerpt)
	in.CoverImageURL = optional(in.CoverImageURL)
	in.Tags = NormalizeTags(in.Tags)
	if in.Status == "" {
		in.Status = PostDraft
	}
	if in.Title == "" {
		return in, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len([]rune(in.Title)) > maxTitleLength {
		return in, fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, maxTitleLength)
	}
	if !in.Status.Valid() {
		return in, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	return in, nil
}

func (p *Post) columns() map[string]interface{} {
	columns := map[string]interface{}{
		postColTitle:    p.Title,
		postColContent:  p.Content,
		postColStatus:   string(p.Status),
		postColTags:     p.Tags,
		postColAuthorID: p.AuthorID,
	}
	setOptional(columns, postColExcerpt, p.Excerpt)
	setOptional(columns, postColCoverImage, p.CoverImageURL)
	setTime(columns, postColCreatedAt, &p.CreatedAt)
	setTime(columns, postColUpdatedAt, &p.UpdatedAt)
	setTime(columns, postColPublishedAt, p.PublishedAt)
	return columns
}

func rowToPost(row storage.Row) *Post {
	columns := row.Columns()
	return &Post{
		ID:            row.ID(),
		Title:         stringColumn(columns, postColTitle),
		Slug:          row.Identifier(),
		Content:       stringColumn(columns, postColContent),
		Excerpt:       optionalColumn(columns, postColExcerpt),
		Status:        PostStatus(stringColumn(columns, postColStatus)),
		Tags:          stringsColumn(columns, postColTags),
		CoverImageURL: optionalColumn(columns, postColCoverImage),
		AuthorID:      stringColumn(columns, postColAuthorID),
		CreatedAt:     valueOrZero(timeColumn(columns, postColCreatedAt)),
		UpdatedAt:     valueOrZero(timeColumn(columns, postColUpdatedAt)),
		PublishedAt:   timeColumn(columns, postColPublishedAt),
	}
}

// CreatePost saves a new post under a slug derived from its title.
func (c *Console) CreatePost(ctx context.Context, who Principal, in PostInput) (*Post, error) {
	if err := authorize(who, "create posts", RoleAdmin, RoleStaff); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}

	now := c.now()
	post := &Post{
		Title:         in.Title,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		Status:        in.Status,
		Tags:          in.Tags,
		CoverImageURL: in.CoverImageURL,
		AuthorID:      who.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if post.Status == PostPublished {
		post.PublishedAt = &now
	}

	post.Slug, err = c.ids.Allocate(ctx, identifier.Posts, post.Title, "", func(ctx context.Context, slug string) error {
		row, err := c.store.CreateRow(ctx, identifier.Posts.Name, slug, post.columns())
		if err != nil {
			return err
		}
		post.ID = row.ID()
		return nil
	})
	if err != nil {
		return nil, err
	}

	tflog.Info(ctx, "post created", map[string]interface{}{"post_id": post.ID, "slug": post.Slug})
	c.publish(ctx, "post", events.Created, identifier.Posts, post.ID, post.Slug, who)
	return post, nil
}

// UpdatePost replaces a post's fields. The slug is derived again only when
// the title changed, and the post never collides with its own slug.
func (c *Console) UpdatePost(ctx context.Context, who Principal, id string, in PostInput) (*Post, error) {
	if err := authorize(who, "edit posts", RoleAdmin, RoleStaff); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}
	existing, err := c.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	post := &Post{
		ID:            existing.ID,
		Title:         in.Title,
		Slug:          existing.Slug,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		Status:        in.Status,
		Tags:          in.Tags,
		CoverImageURL: in.CoverImageURL,
		AuthorID:      existing.AuthorID,
		CreatedAt:     existing.CreatedAt,
		UpdatedAt:     c.now(),
		PublishedAt:   existing.PublishedAt,
	}
	if post.Status == PostPublished && post.PublishedAt == nil {
		publishedAt := post.UpdatedAt
		post.PublishedAt = &publishedAt
	}

	save := func(ctx context.Context, slug string) error {
		_, err := c.store.UpdateRow(ctx, identifier.Posts.Name, id, slug, post.columns())
		return notFound(err, "post", id)
	}
	if post.Title == existing.Title {
		err = save(ctx, existing.Slug)
	} else {
		post.Slug, err = c.ids.Allocate(ctx, identifier.Posts, post.Title, id, save)
	}
	if err != nil {
		return nil, err
	}

	if post.Slug != existing.Slug {
		tflog.Info(ctx, "post renamed", map[string]interface{}{"post_id": id, "old_slug": existing.Slug, "slug": post.Slug})
	}
	c.publish(ctx, "post", events.Updated, identifier.Posts, post.ID, post.Slug, who)
	return post, nil
}

// visible reports whether who may read post. Only published posts are
// public; admin and staff see drafts and archived posts too.
func visible(who Principal, post *Post) bool {
	return post.Status == PostPublished || who.Role == RoleAdmin || who.Role == RoleStaff
}

func (c *Console) GetPost(ctx context.Context, who Principal, id string) (*Post, error) {
	post, err := c.getPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(who, post) {
		return nil, fmt.Errorf("%w: post %q", ErrNotFound, id)
	}
	return post, nil
}

func (c *Console) getPost(ctx context.Context, id string) (*Post, error) {
	row, err := c.store.GetRowByID(ctx, identifier.Posts.Name, id)
	if err != nil {
		return nil, notFound(err, "post", id)
	}
	return rowToPost(row), nil
}

// GetPostBySlug backs public URL routing.
func (c *Console) GetPostBySlug(ctx context.Context, who Principal, slug string) (*Post, error) {
	row, err := c.store.GetRow(ctx, identifier.Posts.Name, slug)
	if err != nil {
		return nil, notFound(err, "post", slug)
	}
	post := rowToPost(row)
	if !visible(who, post) {
		return nil, fmt.Errorf("%w: post %q", ErrNotFound, slug)
	}
	return post, nil
}

func (c *Console) ListPosts(ctx context.Context, who Principal, slugFilter string) ([]*Post, error) {
	rows, err := c.store.ListRows(ctx, identifier.Posts.Name, slugFilter)
	if err != nil {
		return nil, err
	}
	posts := make([]*Post, 0, len(rows))
	for _, row := range rows {
		if post := rowToPost(row); visible(who, post) {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (c *Console) DeletePost(ctx context.Context, who Principal, id string) error {
	if err := authorize(who, "delete posts", RoleAdmin, RoleStaff); err != nil {
		return err
	}
	existing, err := c.getPost(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.DeleteRow(ctx, identifier.Posts.Name, id); err != nil {
		return notFound(err, "post", id)
	}
	c.publish(ctx, "post", events.Deleted, identifier.Posts, id, existing.Slug, who)
	return nil
}
