package model

import "time"

// Role names carried in the JWT "role" claim and stored in users.role.
const (
    RoleUserAdmin       = "USER_ADMIN"
    RoleCSR             = "CSR"
    RolePIN             = "PIN"
    RolePlatformManager = "PLATFORM_MANAGER"
)

// ValidRole reports whether r is one of the four application roles.
func ValidRole(r string) bool {
    switch r {
    case RoleUserAdmin, RoleCSR, RolePIN, RolePlatformManager:
        return true
    }
    return false
}

// User represents an application account as stored in the `users` table.
// PasswordHash never leaves the server.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of the Role* constants.
//  IsActive     – suspended accounts cannot log in.
type User struct {
    ID           uint64    `json:"id"`
    Email        string    `json:"email"`
    Name         string    `json:"name"`
    PasswordHash string    `json:"-"`
    Role         string    `json:"role"`
    IsActive     bool      `json:"is_active"`
    CreatedAt    time.Time `json:"created_at"`
    UpdatedAt    time.Time `json:"updated_at"`
}

// UserStats feeds the User Admin dashboard.
type UserStats struct {
    Total     int64 `json:"total_users"`
    Active    int64 `json:"active_users"`
    Suspended int64 `json:"suspended_users"`
}

// UserUpdate carries an admin edit of an account.  Nil fields are left
// unchanged; Password is the new plain-text password.
type UserUpdate struct {
    Name     *string
    Email    *string
    Password *string
    Role     *string
}
