package domain

import (
	"context"
	"time"
)

// HistoryStore handles persistent storage of conversations and their messages.
type HistoryStore interface {
	CreateConversation(ctx context.Context, conv Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	AddMessage(ctx context.Context, convID string, msg Message) error
	GetMessages(ctx context.Context, convID string, limit int) ([]Message, error)

	Close() error
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
