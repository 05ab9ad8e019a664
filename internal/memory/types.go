package memory

import (
	"context"
	"time"
)

// Message roles. Conversation history alternates user/assistant; the
// system role only appears in assembled context, never in stored history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single conversational turn half.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Document is the rolling conversation record for one user key. Messages
// holds verbatim recent turns; Summary holds the compacted narrative of
// everything older. Turns counts user messages ever recorded and never
// decreases.
type Document struct {
	UserID    string    `json:"user_id"`
	Summary   string    `json:"summary"`
	Messages  []Message `json:"messages"`
	Turns     int       `json:"turns"`
	UpdatedAt time.Time `json:"updated_at"`
}

func emptyDocument(userID string) Document {
	return Document{
		UserID:    userID,
		Messages:  []Message{},
		UpdatedAt: time.Now().UTC(),
	}
}

// Store persists and retrieves conversation documents. The signedIn flag
// selects the backend: durable storage for authenticated users, a
// process-local store for guest sessions.
type Store interface {
	Load(ctx context.Context, key string, signedIn bool) (Document, error)
	Save(ctx context.Context, key string, signedIn bool, doc Document) error
	Close() error
}

// DurableBackend stores documents for signed-in users.
type DurableBackend interface {
	LoadDocument(ctx context.Context, userID string) (Document, error)
	SaveDocument(ctx context.Context, doc Document) error
	Close() error
}
