package memory

import (
	"context"
	"log"
	"strings"
	"time"
)

// DualStore routes document loads and saves to the durable backend for
// signed-in users and to the guest store otherwise. It is the only writer
// to either backend and stamps UpdatedAt on every save.
type DualStore struct {
	durable DurableBackend
	guests  *GuestStore
}

// NewStore creates a postgres-backed store when databaseURL is set,
// otherwise a process-local fallback for signed-in users too.
func NewStore(ctx context.Context, databaseURL string) (*DualStore, error) {
	guests := NewGuestStore()
	if strings.TrimSpace(databaseURL) == "" {
		log.Printf("memory: no DATABASE_URL, signed-in conversations held in process memory")
		return &DualStore{durable: NewInMemoryBackend(), guests: guests}, nil
	}
	durable, err := NewPostgresBackend(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &DualStore{durable: durable, guests: guests}, nil
}

// NewStoreWithBackend wires an explicit durable backend. Used by tests.
func NewStoreWithBackend(durable DurableBackend) *DualStore {
	return &DualStore{durable: durable, guests: NewGuestStore()}
}

func (s *DualStore) Load(ctx context.Context, key string, signedIn bool) (Document, error) {
	if signedIn {
		return s.durable.LoadDocument(ctx, key)
	}
	return s.guests.LoadDocument(ctx, key)
}

func (s *DualStore) Save(ctx context.Context, key string, signedIn bool, doc Document) error {
	doc.UserID = key
	doc.UpdatedAt = time.Now().UTC()
	if signedIn {
		return s.durable.SaveDocument(ctx, doc)
	}
	return s.guests.SaveDocument(ctx, doc)
}

func (s *DualStore) Close() error {
	return s.durable.Close()
}

var _ Store = (*DualStore)(nil)
