package models

import "time"

// UserRole is the closed set of roles checked at the transport boundary.
type UserRole string

const (
	RolePatient UserRole = "PATIENT"
	RoleDoctor  UserRole = "DOCTOR"
	RoleAdmin   UserRole = "ADMIN"
)

// User is an account that can authenticate against the API. Patients book
// appointments for themselves; doctors and admins operate the board.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserInfo is the public projection of a user.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}
