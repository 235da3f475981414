package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Role identifies the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation groups the messages of one memory-backed chat
type Conversation struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`

	ID        string    `bun:",pk"`
	UserID    string    `bun:",notnull"`
	Kind      string    `bun:",notnull"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// ChatMessage is one turn of a conversation
type ChatMessage struct {
	bun.BaseModel `bun:"table:chat_messages,alias:m"`

	ID             int64         `bun:",pk,autoincrement"`
	ConversationID string        `bun:",notnull"`
	Conversation   *Conversation `bun:"rel:belongs-to,join:conversation_id=id"`
	Role           Role          `bun:",notnull"`
	Content        string        `bun:",notnull"`
	CreatedAt      time.Time     `bun:",nullzero,notnull,default:current_timestamp"`
}
