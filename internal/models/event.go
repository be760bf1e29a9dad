package models

import "time"

// Event types recorded by the auth flow.
const (
	EventUserRegistered = "auth.register"
	EventLoginSuccess   = "auth.login.success"
	EventLoginFailure   = "auth.login.fail"
)

// Event represents an auditable authentication action.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "auth.register", "auth.login.fail"
	Level     string    `json:"level"` // e.g., "info", "warn"
	Message   string    `json:"message"`
	UserID    *string   `json:"userId,omitempty"` // Nil when the attempt matched no user
	CreatedAt time.Time `json:"createdAt"`
}
