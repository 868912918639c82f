package models

import "time"

// ChatMessage is a single entry of a conversation.
// UserID is zero for messages that live in a session.
type ChatMessage struct {
	ID        int64     `json:"id,omitempty"`
	UserID    int64     `json:"user_id,omitempty"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest represents the body of a chat turn
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the assistant reply of a chat turn
type ChatResponse struct {
	Response string `json:"response"`
}
