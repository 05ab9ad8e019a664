package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeDocument(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestStore(t *testing.T, emb Embedder) *Store {
	t.Helper()
	return NewStore(Config{
		DataDir:      t.TempDir(),
		VectorDir:    t.TempDir(),
		ChunkSize:    800,
		ChunkOverlap: 120,
		DefaultDim:   4,
	}, emb)
}

func TestLoadOrBuildIngestsDocuments(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	store := newTestStore(t, emb)
	writeDocument(t, store.cfg.DataDir, "a.txt", tokenText(1000))

	if err := store.LoadOrBuild(context.Background()); err != nil {
		t.Fatalf("LoadOrBuild() error = %v", err)
	}
	if got := store.Rows(); got != 2 {
		t.Fatalf("Rows() = %d, want 2", got)
	}
	if !SnapshotExists(store.cfg.VectorDir) {
		t.Fatalf("LoadOrBuild did not persist a snapshot")
	}

	results, err := store.Retrieve(context.Background(), "tok0 tok1", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Source != "a.txt" {
			t.Fatalf("Source = %q, want a.txt", r.Source)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score < results[i-1].Score {
			t.Fatalf("scores not non-decreasing: %v", results)
		}
	}
}

func TestLoadOrBuildRestoresWithoutEmbedding(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	store := newTestStore(t, emb)
	writeDocument(t, store.cfg.DataDir, "a.txt", tokenText(200))

	if err := store.LoadOrBuild(context.Background()); err != nil {
		t.Fatalf("first LoadOrBuild() error = %v", err)
	}
	buildCalls := emb.calls

	restored := NewStore(store.cfg, emb)
	if err := restored.LoadOrBuild(context.Background()); err != nil {
		t.Fatalf("second LoadOrBuild() error = %v", err)
	}
	if emb.calls != buildCalls {
		t.Fatalf("restore called the embedder %d extra times", emb.calls-buildCalls)
	}
	if restored.Rows() != store.Rows() {
		t.Fatalf("restored Rows() = %d, want %d", restored.Rows(), store.Rows())
	}
}

func TestLoadOrBuildChunkIDsPerSource(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	store := newTestStore(t, emb)
	writeDocument(t, store.cfg.DataDir, "a.txt", tokenText(1000))
	writeDocument(t, store.cfg.DataDir, "b.txt", tokenText(100))

	if err := store.LoadOrBuild(context.Background()); err != nil {
		t.Fatalf("LoadOrBuild() error = %v", err)
	}
	if got := store.Rows(); got != 3 {
		t.Fatalf("Rows() = %d, want 3", got)
	}

	// Chunk ids restart at zero for each source file.
	want := []struct {
		source  string
		chunkID int
	}{
		{"a.txt", 0},
		{"a.txt", 1},
		{"b.txt", 0},
	}
	for i, w := range want {
		md := store.snap.Meta[i]
		if md.Source != w.source || md.ChunkID != w.chunkID {
			t.Fatalf("Meta[%d] = %s/%d, want %s/%d", i, md.Source, md.ChunkID, w.source, w.chunkID)
		}
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	store := newTestStore(t, emb)

	if err := store.LoadOrBuild(context.Background()); err != nil {
		t.Fatalf("LoadOrBuild() error = %v", err)
	}
	if store.Rows() != 0 {
		t.Fatalf("Rows() = %d, want 0 for empty data dir", store.Rows())
	}

	results, err := store.Retrieve(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("len(results) = %d, want 0", len(results))
	}
	if emb.calls != 0 {
		t.Fatalf("empty index still embedded the query")
	}
}

func TestRetrieveBeforeLoad(t *testing.T) {
	store := newTestStore(t, &fakeEmbedder{dim: 4})
	results, err := store.Retrieve(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if results != nil {
		t.Fatalf("Retrieve before LoadOrBuild = %v, want nil", results)
	}
}

func TestRetrievePropagatesEmbedderFailure(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	store := newTestStore(t, emb)
	writeDocument(t, store.cfg.DataDir, "a.txt", tokenText(50))

	if err := store.LoadOrBuild(context.Background()); err != nil {
		t.Fatalf("LoadOrBuild() error = %v", err)
	}

	wantErr := errors.New("embedder down")
	emb.fail = wantErr
	if _, err := store.Retrieve(context.Background(), "anything", 5); !errors.Is(err, wantErr) {
		t.Fatalf("Retrieve() error = %v, want %v", err, wantErr)
	}
}
