package memory

import (
	"context"
	"sync"
)

// InMemoryBackend is a process-local durable-backend stand-in used when no
// DATABASE_URL is configured and in tests. Unlike GuestStore it is meant to
// hold signed-in documents, so it keeps the DurableBackend contract exactly.
type InMemoryBackend struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{docs: make(map[string]Document)}
}

func (s *InMemoryBackend) LoadDocument(_ context.Context, userID string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		doc = emptyDocument(userID)
		s.docs[userID] = doc
	}
	return cloneDocument(doc), nil
}

func (s *InMemoryBackend) SaveDocument(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.UserID] = cloneDocument(doc)
	return nil
}

func (s *InMemoryBackend) Close() error { return nil }

var _ DurableBackend = (*InMemoryBackend)(nil)
