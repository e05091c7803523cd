package console

import (
	"errors"
	"fmt"
)

var ErrForbidden = errors.New("insufficient privileges")

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleClient Role = "client"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdmin, RoleStaff, RoleClient:
		return r, true
	}
	return "", false
}

// Principal is the signed-in user an action runs as.
type Principal struct {
	UserID string
	Role   Role
}

func authorize(who Principal, action string, roles ...Role) error {
	if who.UserID == "" {
		return fmt.Errorf("%w: sign in to %s", ErrForbidden, action)
	}
	for _, r := range roles {
		if who.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q may not %s", ErrForbidden, who.Role, action)
}
