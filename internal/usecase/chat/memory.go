package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/promptlab/modelrouter/internal/database"
	"github.com/promptlab/modelrouter/internal/database/models"
	"github.com/promptlab/modelrouter/internal/domain/repository"
)

// DefaultMemoryWindow is the number of stored messages, including the new one, sent per turn.
const DefaultMemoryWindow = 30

const (
	conversationKind = "memory"
	anonymousUser    = "anonymous"
)

const memoryInstruction = `You are a friendly AI assistant with the following traits:
1. You remember the conversation history and answer in context
2. When the user refers to something said earlier, you recall and quote it
3. When meeting a user for the first time, you introduce yourself
4. You stay friendly, patient and professional
5. When asked about personal details, you answer from what was said earlier in the conversation`

// MemoryReply is the outcome of one memory-backed turn.
type MemoryReply struct {
	ConversationID    string `json:"conversationId"`
	UserMessage       string `json:"userMessage"`
	AssistantResponse string `json:"assistantResponse"`
	HistorySize       int    `json:"historySize"`
	DurationMillis    int64  `json:"duration"`
}

// HistoryEntry is one stored message.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// MemoryChat keeps a sliding window of each conversation in the store.
type MemoryChat struct {
	engine repository.CompletionEngine
	store  database.ConversationRepository
	window int
}

// NewMemoryChat creates a memory chat. A window below two uses DefaultMemoryWindow.
func NewMemoryChat(engine repository.CompletionEngine, store database.ConversationRepository, window int) *MemoryChat {
	if window < 2 {
		window = DefaultMemoryWindow
	}
	return &MemoryChat{engine: engine, store: store, window: window}
}

// NewConversationID builds an id of the form <kind>_<user>_<uuid>.
func NewConversationID(kind, userID string) string {
	if userID == "" {
		userID = anonymousUser
	}
	return fmt.Sprintf("%s_%s_%s", kind, userID, uuid.NewString())
}

// Chat appends message to conversationID and answers it with the recent window as context.
// An empty conversationID starts a new conversation; an unknown one is created on first use.
func (m *MemoryChat) Chat(ctx context.Context, conversationID, userID, message string) (*MemoryReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message: %w", ErrEmptyInput)
	}

	conversationID, err := m.ensureConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	recent, err := m.store.RecentMessages(ctx, conversationID, m.window-1)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", conversationID, err)
	}
	history := make([]repository.Turn, len(recent))
	for i, msg := range recent {
		history[i] = repository.Turn{Role: string(msg.Role), Content: msg.Content}
	}

	start := time.Now()
	c, err := m.engine.Generate(ctx, repository.CompletionRequest{
		System:  memoryInstruction,
		History: history,
		User:    message,
	})
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("memory chat %s: %w", conversationID, err)
	}

	err = m.store.AppendMessages(ctx, conversationID,
		&models.ChatMessage{Role: models.RoleUser, Content: message},
		&models.ChatMessage{Role: models.RoleAssistant, Content: c.Text},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store turn for %s: %w", conversationID, err)
	}

	log.Printf("[Memory] 🧠 Conversation %s answered with %d messages of context", conversationID, len(history))
	return &MemoryReply{
		ConversationID:    conversationID,
		UserMessage:       message,
		AssistantResponse: c.Text,
		HistorySize:       len(history),
		DurationMillis:    elapsed,
	}, nil
}

func (m *MemoryChat) ensureConversation(ctx context.Context, conversationID, userID string) (string, error) {
	if userID == "" {
		userID = anonymousUser
	}
	if conversationID != "" {
		_, err := m.store.GetConversation(ctx, conversationID)
		if err == nil {
			return conversationID, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return "", err
		}
	} else {
		conversationID = NewConversationID(conversationKind, userID)
	}

	if err := m.store.CreateConversation(ctx, &models.Conversation{
		ID:     conversationID,
		UserID: userID,
		Kind:   conversationKind,
	}); err != nil {
		return "", fmt.Errorf("failed to create conversation %s: %w", conversationID, err)
	}
	log.Printf("[Memory] 🆕 Started conversation %s", conversationID)
	return conversationID, nil
}

// History returns the last count messages, or all of them when count is not positive.
func (m *MemoryChat) History(ctx context.Context, conversationID string, count int) ([]HistoryEntry, error) {
	if _, err := m.store.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	var (
		msgs []*models.ChatMessage
		err  error
	)
	if count > 0 {
		msgs, err = m.store.RecentMessages(ctx, conversationID, count)
	} else {
		msgs, err = m.store.ListMessages(ctx, conversationID)
	}
	if err != nil {
		return nil, err
	}

	out := make([]HistoryEntry, len(msgs))
	for i, msg := range msgs {
		out[i] = HistoryEntry{Role: string(msg.Role), Content: msg.Content, CreatedAt: msg.CreatedAt}
	}
	return out, nil
}

// Clear deletes the conversation and all of its messages.
func (m *MemoryChat) Clear(ctx context.Context, conversationID string) error {
	if err := m.store.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}
	log.Printf("[Memory] 🧹 Cleared conversation %s", conversationID)
	return nil
}
