// Package models defines the client-side account types shared by the session
// and registration packages.
package models

import (
	"errors"
	"strings"
)

// Role is the marketplace role a user registered with.
type Role string

const (
	RoleSeller   Role = "seller"
	RoleCustomer Role = "customer"
)

var ErrUnknownRole = errors.New("role must be seller or customer")

// ParseRole normalises s and checks it names a known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	return r == RoleSeller || r == RoleCustomer
}

// UserProfile mirrors the server's user record. It may be stale: it is
// refreshed opportunistically and never required to be fresh for reads.
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Location  string `json:"location,omitempty"`
}

// DisplayName returns "First Last" when known, the e-mail otherwise.
func (u *UserProfile) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Clone returns a copy so callers cannot mutate session-owned state.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
