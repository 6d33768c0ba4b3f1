package model

import "time"

// Staff roles.  ADMIN may run allocations; STAFF may only read.
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// User represents a staff account stored in the `users` table.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or STAFF.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
}
