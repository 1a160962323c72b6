package domain

import "time"

// Role is the sole authorization discriminant for a user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleTeam     Role = "team"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleTeam, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r belongs to the support side (team or admin).
func (r Role) IsStaff() bool {
	return r == RoleTeam || r == RoleAdmin
}

// User is the identity record for customers and staff.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Phone        *string
	Address      *string
	Avatar       *string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRef is the expanded form of a user reference embedded in responses.
type UserRef struct {
	ID     string
	Name   string
	Email  string
	Avatar *string
}

// Ref returns the public summary of u.
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}
