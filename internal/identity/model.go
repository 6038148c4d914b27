package identity

import "time"

// Roles carried in issued tokens.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a registered account holder.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Registration is the sign-up request.
type Registration struct {
	Name     string
	Email    string
	Password string
}

// Credentials is the sign-in request.
type Credentials struct {
	Email    string
	Password string
}
