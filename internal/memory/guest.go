package memory

import (
	"context"
	"sync"
)

// GuestStore holds conversation documents for anonymous sessions in process
// memory, keyed by the generated guest session id. The mutex protects map
// integrity only: concurrent saves for the same guest key are last-write-wins,
// and documents do not survive a restart. Guests get no cross-backend
// migration; signing in starts a fresh durable document.
type GuestStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewGuestStore() *GuestStore {
	return &GuestStore{docs: make(map[string]Document)}
}

func (s *GuestStore) LoadDocument(_ context.Context, key string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[key]
	if !ok {
		doc = emptyDocument(key)
		s.docs[key] = doc
	}
	return cloneDocument(doc), nil
}

func (s *GuestStore) SaveDocument(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.UserID] = cloneDocument(doc)
	return nil
}

func (s *GuestStore) Close() error { return nil }

// cloneDocument copies the message slice so callers cannot mutate stored
// state through a returned document.
func cloneDocument(doc Document) Document {
	out := doc
	out.Messages = make([]Message, len(doc.Messages))
	copy(out.Messages, doc.Messages)
	return out
}

var _ DurableBackend = (*GuestStore)(nil)
