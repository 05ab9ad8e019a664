package rag

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/wellnest/assistant/internal/reliability"
)

// Snapshot file names within the configured vector directory. The two
// artifacts are linked only by row order: Meta[i] describes Vectors[i].
const (
	vectorsFile  = "vectors.gob"
	metadataFile = "metadata.json"
)

// SourceChunk is one embeddable unit produced during ingestion.
type SourceChunk struct {
	Source  string
	ChunkID int
	Text    string
}

// ChunkMeta is the persisted provenance record for one index row.
type ChunkMeta struct {
	Source  string `json:"source"`
	ChunkID int    `json:"chunk_id"`
	Text    string `json:"text"`
}

// Snapshot is the immutable-once-written state of the flat index: a dense
// block of embedding vectors and a parallel metadata sequence. Row order
// is the sole linkage between the two and must never diverge.
type Snapshot struct {
	Dim     int
	Vectors [][]float32
	Meta    []ChunkMeta
}

// Hit is one nearest-neighbor result.
type Hit struct {
	Row      int
	Distance float64
}

// BuildSnapshot embeds all chunk texts as a single order-preserving batch
// and assembles the flat index. An empty chunk set yields an index with
// the fallback dimensionality and zero rows so later searches degrade to
// empty results instead of failing.
func BuildSnapshot(ctx context.Context, embedder Embedder, chunks []SourceChunk, defaultDim int) (*Snapshot, error) {
	if len(chunks) == 0 {
		return &Snapshot{Dim: defaultDim, Vectors: [][]float32{}, Meta: []ChunkMeta{}}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, reliability.Mark(reliability.KindUpstream,
			fmt.Errorf("build index: embedder returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	meta := make([]ChunkMeta, len(chunks))
	for i, c := range chunks {
		meta[i] = ChunkMeta{Source: c.Source, ChunkID: c.ChunkID, Text: c.Text}
	}

	return &Snapshot{Dim: len(vectors[0]), Vectors: vectors, Meta: meta}, nil
}

// Search returns up to min(k, rows) nearest neighbors by ascending exact
// Euclidean distance. Brute force over every row: retrieval results must
// be reproducible, so no approximation.
func (s *Snapshot) Search(query []float32, k int) []Hit {
	if s == nil || len(s.Vectors) == 0 || k <= 0 {
		return nil
	}

	hits := make([]Hit, len(s.Vectors))
	for i, v := range s.Vectors {
		hits[i] = Hit{Row: i, Distance: euclidean(query, v)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

func euclidean(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	// Dimension mismatches count missing components as zero rather than
	// panicking; they only arise if the embedding model changes under a
	// stale snapshot.
	for i := n; i < len(a); i++ {
		sum += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		sum += float64(b[i]) * float64(b[i])
	}
	return math.Sqrt(sum)
}

// vectorsArtifact is the gob payload for the vector block.
type vectorsArtifact struct {
	Dim     int
	Vectors [][]float32
}

// Persist writes the snapshot as its two co-located artifacts. Vectors go
// through gob (bit-faithful float32 round trip); metadata is JSON for
// inspectability.
func (s *Snapshot) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return reliability.Mark(reliability.KindPersistence, fmt.Errorf("create vector dir: %w", err))
	}

	vf, err := os.Create(filepath.Join(dir, vectorsFile))
	if err != nil {
		return reliability.Mark(reliability.KindPersistence, fmt.Errorf("create vectors artifact: %w", err))
	}
	defer vf.Close()
	if err := gob.NewEncoder(vf).Encode(vectorsArtifact{Dim: s.Dim, Vectors: s.Vectors}); err != nil {
		return reliability.Mark(reliability.KindPersistence, fmt.Errorf("encode vectors: %w", err))
	}

	metaJSON, err := json.Marshal(s.Meta)
	if err != nil {
		return reliability.Mark(reliability.KindPersistence, fmt.Errorf("encode metadata: %w", err))
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), metaJSON, 0o644); err != nil {
		return reliability.Mark(reliability.KindPersistence, fmt.Errorf("write metadata artifact: %w", err))
	}
	return nil
}

// RestoreSnapshot reads both artifacts back and re-checks the row linkage
// invariant.
func RestoreSnapshot(dir string) (*Snapshot, error) {
	vf, err := os.Open(filepath.Join(dir, vectorsFile))
	if err != nil {
		return nil, reliability.Mark(reliability.KindPersistence, fmt.Errorf("open vectors artifact: %w", err))
	}
	defer vf.Close()

	var art vectorsArtifact
	if err := gob.NewDecoder(vf).Decode(&art); err != nil {
		return nil, reliability.Mark(reliability.KindPersistence, fmt.Errorf("decode vectors: %w", err))
	}

	metaJSON, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, reliability.Mark(reliability.KindPersistence, fmt.Errorf("read metadata artifact: %w", err))
	}
	var meta []ChunkMeta
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, reliability.Mark(reliability.KindPersistence, fmt.Errorf("decode metadata: %w", err))
	}
	if meta == nil {
		meta = []ChunkMeta{}
	}
	if art.Vectors == nil {
		art.Vectors = [][]float32{}
	}

	if len(art.Vectors) != len(meta) {
		return nil, reliability.Mark(reliability.KindPersistence,
			fmt.Errorf("snapshot corrupt: %d vectors but %d metadata rows", len(art.Vectors), len(meta)))
	}

	return &Snapshot{Dim: art.Dim, Vectors: art.Vectors, Meta: meta}, nil
}

// SnapshotExists reports whether both artifacts are present in dir.
func SnapshotExists(dir string) bool {
	for _, name := range []string{vectorsFile, metadataFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}
