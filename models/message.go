package models

import (
	"time"
)

// Message represents a single directed chat entry between two users.
type Message struct {
	ID         string    `json:"id"`         // Server-assigned unique ID (UUID)
	SenderID   string    `json:"senderId"`   // ID of the user sending the message
	ReceiverID string    `json:"receiverId"` // ID of the user receiving the message
	Text       string    `json:"text"`       // Message content
	CreatedAt  time.Time `json:"createdAt"`  // Server timestamp of message creation
}

// ComposeRequest is the body of a POST /conversation request.
// SenderID is optional; when present it must match the authenticated caller.
type ComposeRequest struct {
	Text       string `json:"text" validate:"required"`
	ReceiverID string `json:"receiverId" validate:"required"`
	SenderID   string `json:"senderId"`
}
