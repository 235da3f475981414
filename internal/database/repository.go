package database

import (
	"context"
	"errors"

	"github.com/promptlab/modelrouter/internal/database/models"
)

var ErrNotFound = errors.New("record not found")

// ConversationRepository handles chat memory persistence
type ConversationRepository interface {
	// CreateConversation inserts conv. An id that already exists is left untouched.
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	// AppendMessages stores msgs in order and touches the conversation's updated_at.
	AppendMessages(ctx context.Context, conversationID string, msgs ...*models.ChatMessage) error
	// RecentMessages returns at most limit messages, oldest first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*models.ChatMessage, error)
	ListMessages(ctx context.Context, conversationID string) ([]*models.ChatMessage, error)
}
