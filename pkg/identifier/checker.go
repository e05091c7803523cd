// Package identifier allocates collection-unique identifiers: URL slugs for
// blog posts and contact emails for clients.
package identifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

var (
	ErrEmptyCandidate = errors.New("identifier candidate is empty")
	ErrExhausted      = errors.New("could not allocate unique identifier")
	ErrTaken          = errors.New("identifier is already in use")
)

type Checker struct {
	finder storage.RowFinder
}

func NewChecker(finder storage.RowFinder) *Checker {
	return &Checker{finder: finder}
}

// Available reports whether candidate is free in coll. A row whose ID is
// excludeID never conflicts, so a record keeps its own identifier on edit.
// Store errors are returned as-is.
func (checker *Checker) Available(ctx context.Context, coll Collection, candidate, excludeID string) (bool, error) {
	if candidate == "" {
		return false, ErrEmptyCandidate
	}
	rows, err := checker.finder.FindRows(ctx, coll.Name, coll.Field, candidate)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if excludeID == "" || row.ID() != excludeID {
			tflog.Trace(ctx, fmt.Sprintf("%s %q held by %s", coll.Name, candidate, row.ID()))
			return false, nil
		}
	}
	return true, nil
}
