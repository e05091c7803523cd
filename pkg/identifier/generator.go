package identifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/slug"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

const (
	DefaultMaxAttempts      = 1000
	DefaultMaxClaimAttempts = 5
)

// ClaimFunc persists a record under identifier. It must be a conditional
// write that fails with storage.ErrCollisionIdentifier when the identifier
// was taken in the meantime.
type ClaimFunc func(ctx context.Context, identifier string) error

type Generator struct {
	checker          *Checker
	maxAttempts      int
	maxClaimAttempts int
}

// NewGenerator returns a Generator probing finder. Non-positive limits fall
// back to DefaultMaxAttempts and DefaultMaxClaimAttempts.
func NewGenerator(finder storage.RowFinder, maxAttempts, maxClaimAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxClaimAttempts <= 0 {
		maxClaimAttempts = DefaultMaxClaimAttempts
	}
	return &Generator{
		checker:          NewChecker(finder),
		maxAttempts:      maxAttempts,
		maxClaimAttempts: maxClaimAttempts,
	}
}

func (g *Generator) Checker() *Checker {
	return g.checker
}

// Generate returns an identifier derived from seed that is currently free in
// coll. The bare base is tried first, then base-1, base-2, ... for
// PolicySuffix collections; PolicyExact collections fail with ErrTaken.
// Nothing is written, so the result can be taken by someone else before the
// caller stores it; use Allocate to persist.
func (g *Generator) Generate(ctx context.Context, coll Collection, seed, excludeID string) (string, error) {
	base := coll.Base(seed)
	if base == "" {
		return "", ErrEmptyCandidate
	}

	candidate := base
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		free, err := g.checker.Available(ctx, coll, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
		if coll.Policy == PolicyExact {
			return "", fmt.Errorf("%w: %s %q", ErrTaken, coll.Name, candidate)
		}
		candidate = slug.WithSuffix(base, attempt)
	}
	return "", fmt.Errorf("%w: %s %q after %d attempts", ErrExhausted, coll.Name, base, g.maxAttempts)
}

// Allocate generates an identifier and hands it to claim. When claim loses a
// race for the identifier, generation starts over so the loser moves on to
// the next free suffix; after maxClaimAttempts lost races it gives up with
// ErrExhausted.
func (g *Generator) Allocate(ctx context.Context, coll Collection, seed, excludeID string, claim ClaimFunc) (string, error) {
	for attempt := 1; ; attempt++ {
		candidate, err := g.Generate(ctx, coll, seed, excludeID)
		if err != nil {
			return "", err
		}

		err = claim(ctx, candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, storage.ErrCollisionIdentifier) {
			return "", err
		}
		if coll.Policy == PolicyExact {
			return "", fmt.Errorf("%w: %s %q", ErrTaken, coll.Name, candidate)
		}
		if attempt >= g.maxClaimAttempts {
			return "", fmt.Errorf("%w: %s %q lost %d races", ErrExhausted, coll.Name, candidate, attempt)
		}
		tflog.Debug(ctx, fmt.Sprintf("%s %q claimed concurrently, retrying", coll.Name, candidate), map[string]interface{}{"attempt": attempt})
	}
}
