package users

import "time"

// Roles a user can register with.
const (
	RoleSeller   = "seller"
	RoleCustomer = "customer"
)

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Role         string
	FirstName    string
	LastName     string
	Verified     bool
	CreatedAt    time.Time

	// Pending verification code, if any.
	CodeSecret   string
	CodeIssuedAt time.Time
}
