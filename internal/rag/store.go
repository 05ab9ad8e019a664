package rag

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/wellnest/assistant/internal/reliability"
)

// Config holds retrieval-store settings.
type Config struct {
	DataDir      string
	VectorDir    string
	ChunkSize    int
	ChunkOverlap int
	DefaultDim   int
}

// Result is one retrieval hit with citation metadata. Score is the exact
// Euclidean distance to the query: lower is more relevant.
type Result struct {
	Source  string  `json:"source"`
	ChunkID int     `json:"chunk_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// Store owns the vector index snapshot: it ingests documents at startup
// and serves nearest-neighbor lookups afterwards. The snapshot is built
// once and read-only from then on, so concurrent retrievals are safe.
type Store struct {
	cfg      Config
	embedder Embedder
	snap     *Snapshot
}

func NewStore(cfg Config, embedder Embedder) *Store {
	return &Store{cfg: cfg, embedder: embedder}
}

// LoadOrBuild restores the persisted snapshot when one exists, otherwise
// ingests the document directory: read each *.txt in name order, chunk,
// embed as one batch, build the index, persist. One-time startup side
// effect; there is no incremental re-ingestion, delete the snapshot to
// rebuild.
func (s *Store) LoadOrBuild(ctx context.Context) error {
	if SnapshotExists(s.cfg.VectorDir) {
		snap, err := RestoreSnapshot(s.cfg.VectorDir)
		if err != nil {
			return err
		}
		s.snap = snap
		log.Printf("rag: restored snapshot with %d chunks from %s", len(snap.Meta), s.cfg.VectorDir)
		return nil
	}

	chunks, err := s.readChunks()
	if err != nil {
		return err
	}

	snap, err := BuildSnapshot(ctx, s.embedder, chunks, s.cfg.DefaultDim)
	if err != nil {
		return err
	}
	if err := snap.Persist(s.cfg.VectorDir); err != nil {
		return err
	}
	s.snap = snap
	log.Printf("rag: built snapshot with %d chunks from %s", len(snap.Meta), s.cfg.DataDir)
	return nil
}

func (s *Store) readChunks() ([]SourceChunk, error) {
	paths, err := filepath.Glob(filepath.Join(s.cfg.DataDir, "*.txt"))
	if err != nil {
		return nil, reliability.Mark(reliability.KindPersistence, fmt.Errorf("scan data dir: %w", err))
	}
	sort.Strings(paths)

	var chunks []SourceChunk
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, reliability.Mark(reliability.KindPersistence,
				fmt.Errorf("read document %s: %w", path, err))
		}
		source := filepath.Base(path)
		for ci, text := range Chunk(string(content), s.cfg.ChunkSize, s.cfg.ChunkOverlap) {
			chunks = append(chunks, SourceChunk{Source: source, ChunkID: ci, Text: text})
		}
	}
	return chunks, nil
}

// Retrieve embeds the query, searches the index, and maps result rows back
// to their metadata. Empty or uninitialized indexes yield an empty result,
// never an error; embedding failures propagate to the caller.
func (s *Store) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	if s.snap == nil || len(s.snap.Vectors) == 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, reliability.Mark(reliability.KindUpstream,
			fmt.Errorf("retrieve: embedder returned %d vectors for one query", len(vectors)))
	}

	hits := s.snap.Search(vectors[0], topK)
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		md := s.snap.Meta[h.Row]
		results = append(results, Result{
			Source:  md.Source,
			ChunkID: md.ChunkID,
			Text:    md.Text,
			Score:   h.Distance,
		})
	}
	return results, nil
}

// Rows reports the number of indexed chunks. Zero before LoadOrBuild.
func (s *Store) Rows() int {
	if s.snap == nil {
		return 0
	}
	return len(s.snap.Vectors)
}
