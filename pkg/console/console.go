// Package console implements the agency console's save actions for blog
// posts and clients: role check, identifier allocation, a single write, and a
// record event.
package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/events"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/identifier"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("record not found")
)

type Console struct {
	store     storage.RowStorer
	ids       *identifier.Generator
	publisher events.Publisher
	now       func() time.Time
}

// New wires a Console to store. A nil generator checks store with the
// default limits; a nil publisher drops events.
func New(store storage.RowStorer, ids *identifier.Generator, publisher events.Publisher) *Console {
	if ids == nil {
		ids = identifier.NewGenerator(store, 0, 0)
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Console{
		store:     store,
		ids:       ids,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PreviewIdentifier returns the identifier a save would currently get for
// seed, without writing anything.
func (c *Console) PreviewIdentifier(ctx context.Context, who Principal, coll identifier.Collection, seed, excludeID string) (string, error) {
	if err := authorize(who, "preview identifiers", RoleAdmin, RoleStaff); err != nil {
		return "", err
	}
	return c.ids.Generate(ctx, coll, seed, excludeID)
}

func (c *Console) publish(ctx context.Context, entity string, t events.Type, coll identifier.Collection, id, ident string, who Principal) {
	err := c.publisher.Publish(ctx, events.New(entity, t, coll.Name, id, ident, who.UserID))
	if err != nil {
		// the write already happened; a lost event must not fail the save
		tflog.Warn(ctx, fmt.Sprintf("publishing %s.%s for %s: %s", entity, t, id, err.Error()))
	}
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, storage.ErrNotFoundRow) {
		return fmt.Errorf("%w: %s %q", ErrNotFound, entity, id)
	}
	return err
}
