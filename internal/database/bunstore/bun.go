package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/promptlab/modelrouter/internal/database"
	"github.com/promptlab/modelrouter/internal/database/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

type BunStore struct {
	db *bun.DB
}

// OpenSQLite opens path through sqliteshim, which picks a cgo or pure-Go driver.
// Use "file::memory:?cache=shared" for an in-memory store.
func OpenSQLite(path string) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single connection keeps in-memory databases alive and serializes writers.
	sqldb.SetMaxOpenConns(1)

	if _, err := sqldb.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store, err := NewBunStore(sqldb, sqlitedialect.New())
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return store, nil
}

func NewBunStore(db *sql.DB, dialect schema.Dialect) (*BunStore, error) {
	bunDB := bun.NewDB(db, dialect)

	store := &BunStore{db: bunDB}

	// Create tables if they don't exist
	ctx := context.Background()
	if _, err := bunDB.NewCreateTable().Model((*models.Conversation)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create conversations table: %w", err)
	}
	if _, err := bunDB.NewCreateTable().Model((*models.ChatMessage)(nil)).IfNotExists().
		ForeignKey(`("conversation_id") REFERENCES "conversations" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create chat_messages table: %w", err)
	}
	if _, err := bunDB.NewCreateIndex().Model((*models.ChatMessage)(nil)).IfNotExists().
		Index("idx_chat_messages_conversation_id").Column("conversation_id").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create chat_messages index: %w", err)
	}

	return store, nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

// Ping checks the underlying connection.
func (s *BunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ConversationRepository Implementation
func (s *BunStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	_, err := s.db.NewInsert().Model(conv).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	return err
}

func (s *BunStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	conv := new(models.Conversation)
	if err := s.db.NewSelect().Model(conv).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return conv, nil
}

func (s *BunStore) DeleteConversation(ctx context.Context, id string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.ChatMessage)(nil)).Where("conversation_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*models.Conversation)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}

func (s *BunStore) AppendMessages(ctx context.Context, conversationID string, msgs ...*models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*models.Conversation)(nil)).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", conversationID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return database.ErrNotFound
		}

		// One insert per message keeps the autoincrement order equal to the slice order.
		for _, m := range msgs {
			m.ConversationID = conversationID
			if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BunStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	var msgs []*models.ChatMessage
	if err := s.db.NewSelect().Model(&msgs).
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *BunStore) ListMessages(ctx context.Context, conversationID string) ([]*models.ChatMessage, error) {
	var msgs []*models.ChatMessage
	if err := s.db.NewSelect().Model(&msgs).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	return msgs, nil
}
