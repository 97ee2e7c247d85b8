package models

import "time"

// Role is a staff role. Roles gate fulfillment transitions and admin-only endpoints.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleWaiter    Role = "waiter"
	RoleKitchen   Role = "kitchen"
	RoleBartender Role = "bartender"
	RoleCashier   Role = "cashier"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleWaiter, RoleKitchen, RoleBartender, RoleCashier:
		return true
	default:
		return false
	}
}

// User represents a staff account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"` // '-' means don't send in JSON response
	FullName     *string   `json:"full_name,omitempty" db:"full_name"`
	Role         Role      `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Actor is the authenticated caller of a core operation.
type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Credentials for login request
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegistrationPayload for staff registration
type RegistrationPayload struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required,min=6"`
	FullName *string `json:"full_name,omitempty"`
	Role     Role    `json:"role" binding:"required"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}
