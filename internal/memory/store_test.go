package memory

import (
	"context"
	"testing"
	"time"
)

func TestDualStoreRoutesByIdentity(t *testing.T) {
	durable := NewInMemoryBackend()
	store := NewStoreWithBackend(durable)
	ctx := context.Background()

	doc, err := store.Load(ctx, "alice", true)
	if err != nil {
		t.Fatalf("Load(signed-in) error = %v", err)
	}
	doc.Messages = append(doc.Messages, Message{Role: RoleUser, Content: "hi"})
	if err := store.Save(ctx, "alice", true, doc); err != nil {
		t.Fatalf("Save(signed-in) error = %v", err)
	}

	// The same key as a guest must not see durable state.
	guestDoc, err := store.Load(ctx, "alice", false)
	if err != nil {
		t.Fatalf("Load(guest) error = %v", err)
	}
	if len(guestDoc.Messages) != 0 {
		t.Fatalf("guest document has %d messages, want 0", len(guestDoc.Messages))
	}

	durableDoc, err := durable.LoadDocument(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	if len(durableDoc.Messages) != 1 {
		t.Fatalf("durable document has %d messages, want 1", len(durableDoc.Messages))
	}
}

func TestGuestIsolation(t *testing.T) {
	store := NewStoreWithBackend(NewInMemoryBackend())
	ctx := context.Background()

	a, _ := store.Load(ctx, "guest-a", false)
	a.Messages = append(a.Messages, Message{Role: RoleUser, Content: "a says"})
	if err := store.Save(ctx, "guest-a", false, a); err != nil {
		t.Fatalf("Save(guest-a) error = %v", err)
	}

	b, err := store.Load(ctx, "guest-b", false)
	if err != nil {
		t.Fatalf("Load(guest-b) error = %v", err)
	}
	if len(b.Messages) != 0 {
		t.Fatalf("guest-b sees %d messages from guest-a, want 0", len(b.Messages))
	}

	a2, _ := store.Load(ctx, "guest-a", false)
	if len(a2.Messages) != 1 || a2.Messages[0].Content != "a says" {
		t.Fatalf("guest-a document = %+v, want its own single message", a2.Messages)
	}
}

func TestSaveStampsUpdatedAt(t *testing.T) {
	store := NewStoreWithBackend(NewInMemoryBackend())
	ctx := context.Background()

	doc, _ := store.Load(ctx, "u1", false)
	doc.UpdatedAt = time.Time{}
	before := time.Now().UTC()
	if err := store.Save(ctx, "u1", false, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _ := store.Load(ctx, "u1", false)
	if got.UpdatedAt.Before(before) {
		t.Fatalf("UpdatedAt = %v, want stamped at save time", got.UpdatedAt)
	}
}

func TestLoadReturnsIndependentCopies(t *testing.T) {
	store := NewStoreWithBackend(NewInMemoryBackend())
	ctx := context.Background()

	doc, _ := store.Load(ctx, "u1", false)
	doc.Messages = append(doc.Messages, Message{Role: RoleUser, Content: "original"})
	if err := store.Save(ctx, "u1", false, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	first, _ := store.Load(ctx, "u1", false)
	first.Messages[0].Content = "mutated"

	second, _ := store.Load(ctx, "u1", false)
	if second.Messages[0].Content != "original" {
		t.Fatalf("stored document mutated through returned copy")
	}
}
