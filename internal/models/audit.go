package models

import "time"

// AuditLog represents a record of an authentication event
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Details   string    `json:"details"` // JSON string
	IPAddress string    `json:"ip_address"`
}

// AuditFilter narrows audit log listings
type AuditFilter struct {
	UserID *int64
	Action string
	Limit  int
	Offset int
}

// Audit actions
const (
	ActionRegister    = "user.register"
	ActionLogin       = "login"
	ActionLoginFailed = "login.failed"
	ActionLogout      = "logout"
	ActionRemember    = "login.remember"
)
