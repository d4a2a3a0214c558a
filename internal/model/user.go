package model

import "time"

// User roles, from most to least privileged. Superadmins may edit or delete
// any letter; everyone else only their own.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// User is a registered account. Email and username are globally unique,
// compared case-insensitively.
//
// PasswordHash is the bcrypt hash of the password — never the password
// itself, and never serialized (json:"-").
type User struct {
	ID           string    `json:"id"          db:"id"`
	Email        string    `json:"email"       db:"email"`
	Username     string    `json:"username"    db:"username"`
	DisplayName  string    `json:"displayName" db:"display_name"`
	PasswordHash string    `json:"-"           db:"password_hash"`
	Role         string    `json:"role"        db:"role"`
	CreatedAt    time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"   db:"updated_at"`
}

// Ref returns the slim projection of the user embedded in letters and
// reactions.
func (u *User) Ref() UserRef {
	return UserRef{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
	}
}
