package types

import "time"

// Role is the coarse permission tier assigned to a user
type Role string

const (
	RoleAdmin Role = "admin"
	RoleClerk Role = "clerk"
)

// User is a back-office operator. PasswordHash is a bcrypt digest produced
// by an explicit constructor, never by the storage layer.
type User struct {
	ID           int64
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
