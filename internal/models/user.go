package models

import "time"

// User represents a registered chat user
type User struct {
	ID                  int64      `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email,omitempty"`
	PasswordHash        string     `json:"-"` // Never expose in JSON
	RememberTokenHash   string     `json:"-"`
	RememberTokenExpiry *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
}

// HasRememberToken returns true if a remember-me token is stored for the user
func (u *User) HasRememberToken() bool {
	return u.RememberTokenHash != "" && u.RememberTokenExpiry != nil
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}
