package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wellnest/assistant/internal/reliability"
)

// PostgresBackend persists conversation documents in PostgreSQL, one row
// per user key. Messages are stored as a JSONB array; per-key upsert is
// atomic at the row level, but concurrent read-modify-write cycles for the
// same key can still interleave (no optimistic-concurrency token).
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, reliability.Mark(reliability.KindPersistence, fmt.Errorf("connect postgres: %w", err))
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresBackend{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			user_id TEXT PRIMARY KEY,
			summary TEXT NOT NULL DEFAULT '',
			messages JSONB NOT NULL DEFAULT '[]',
			turns INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations (updated_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return reliability.Mark(reliability.KindPersistence,
				fmt.Errorf("init schema failed on %q: %w", stmt, err))
		}
	}
	return nil
}

// LoadDocument returns the document for userID, creating an empty one on
// first sight. The insert-if-absent runs before the select so two racing
// first loads both observe a row.
func (s *PostgresBackend) LoadDocument(ctx context.Context, userID string) (Document, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (user_id, updated_at) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return Document{}, reliability.Mark(reliability.KindPersistence,
			fmt.Errorf("create conversation: %w", err))
	}

	var (
		doc          Document
		messagesJSON []byte
	)
	err = s.pool.QueryRow(ctx,
		`SELECT user_id, summary, messages, turns, updated_at
		 FROM conversations WHERE user_id=$1`,
		userID,
	).Scan(&doc.UserID, &doc.Summary, &messagesJSON, &doc.Turns, &doc.UpdatedAt)
	if err != nil {
		return Document{}, reliability.Mark(reliability.KindPersistence,
			fmt.Errorf("load conversation: %w", err))
	}

	if err := json.Unmarshal(messagesJSON, &doc.Messages); err != nil {
		return Document{}, reliability.Mark(reliability.KindPersistence,
			fmt.Errorf("decode messages for %s: %w", userID, err))
	}
	if doc.Messages == nil {
		doc.Messages = []Message{}
	}
	return doc, nil
}

func (s *PostgresBackend) SaveDocument(ctx context.Context, doc Document) error {
	messagesJSON, err := json.Marshal(doc.Messages)
	if err != nil {
		return reliability.Mark(reliability.KindPersistence,
			fmt.Errorf("encode messages for %s: %w", doc.UserID, err))
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversations (user_id, summary, messages, turns, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			messages = EXCLUDED.messages,
			turns = EXCLUDED.turns,
			updated_at = EXCLUDED.updated_at`,
		doc.UserID, doc.Summary, messagesJSON, doc.Turns, doc.UpdatedAt,
	)
	if err != nil {
		return reliability.Mark(reliability.KindPersistence,
			fmt.Errorf("save conversation: %w", err))
	}
	return nil
}

func (s *PostgresBackend) Close() error {
	s.pool.Close()
	return nil
}

var _ DurableBackend = (*PostgresBackend)(nil)
