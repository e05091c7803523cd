package identifier

import (
	"strings"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/slug"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

type Policy int

const (
	// PolicySuffix slugifies the seed and appends -1, -2, ... until the
	// candidate is free.
	PolicySuffix Policy = iota
	// PolicyExact trims and lowercases the seed; a taken value is an error.
	PolicyExact
)

func (p Policy) String() string {
	switch p {
	case PolicySuffix:
		return "suffix"
	case PolicyExact:
		return "exact"
	default:
		return "unknown"
	}
}

// Collection describes where an entity type keeps its unique identifiers.
type Collection struct {
	// Name is the storage row type.
	Name string
	// Field is the field compared against candidates.
	Field  string
	Policy Policy
	// Fallback is the base used when the seed normalizes to nothing.
	Fallback string
}

var (
	Posts = Collection{
		Name:     "posts",
		Field:    storage.FieldIdentifier,
		Policy:   PolicySuffix,
		Fallback: "post",
	}
	Clients = Collection{
		Name:   "clients",
		Field:  storage.FieldIdentifier,
		Policy: PolicyExact,
	}
)

// Lookup returns the predefined collection with the given name.
func Lookup(name string) (Collection, bool) {
	for _, c := range []Collection{Posts, Clients} {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// Base derives the first candidate from seed.
func (c Collection) Base(seed string) string {
	if c.Policy == PolicyExact {
		return strings.ToLower(strings.TrimSpace(seed))
	}
	if base := slug.Normalize(seed); base != "" {
		return base
	}
	return c.Fallback
}
