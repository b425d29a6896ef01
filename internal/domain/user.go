package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold.
type Role int

const (
	RoleCustomer Role = iota
	RoleAdmin
)

// ParseRole maps a stored role tag to a Role. "user" is accepted as a legacy
// alias for customer.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer", "user", "":
		return RoleCustomer, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleCustomer, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is a registered storefront account.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Caller is the authenticated principal resolved from a bearer token.
type Caller struct {
	UserID string
	Role   Role
	Name   string
	Email  string
}

// IsAdmin reports whether the caller holds the administrative role.
func (c Caller) IsAdmin() bool {
	switch c.Role {
	case RoleAdmin:
		return true
	case RoleCustomer:
		return false
	default:
		return false
	}
}

// Owns reports whether the caller is the given user.
func (c Caller) Owns(userID string) bool {
	return c.UserID != "" && c.UserID == userID
}
