package flash

import (
	"context"
	"time"
)

// QueryParam is the redirect query parameter carrying a flash key.
const QueryParam = "flash"

// DefaultTTL bounds how long an unread message is kept.
const DefaultTTL = 5 * time.Minute

const (
	TypeSuccess = "success"
	TypeInfo    = "info"
	TypeDanger  = "danger"
)

// Message is a one-shot notice shown on the next page only.
type Message struct {
	Type    string `json:"type"`
	Intro   string `json:"intro,omitempty"`
	Message string `json:"message"`
}

// Store keeps messages under random keys until they are popped or expire.
type Store interface {
	Put(ctx context.Context, msg Message) (string, error)
	// Pop returns and deletes the message. A missing or expired key yields
	// (nil, nil).
	Pop(ctx context.Context, key string) (*Message, error)
}
