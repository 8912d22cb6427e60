package vectorstore

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"course_qa_backend/internal/model"
)

const snapshotFile = "vectors.gob"

// SearchResult pairs a chunk with its similarity to the query, on a scale
// where 1.0 means identical and values converge toward 0 for dissimilar.
type SearchResult struct {
	Chunk      model.Chunk
	Similarity float64
}

// Entry is one persisted vector with the chunk metadata it was built from.
type Entry struct {
	Chunk  model.Chunk
	Vector []float32
}

// Store is an embedding-indexed nearest-neighbor structure over chunk
// text. Vectors are held in memory, guarded by a RWMutex, and persisted
// as a gob snapshot in the store's own directory, independent of the
// relational database.
type Store struct {
	mu        sync.RWMutex
	dir       string
	embedder  Embedder
	overfetch int
	entries   map[string]Entry
}

func New(dir string, embedder Embedder, overfetchFactor int) (*Store, error) {
	if overfetchFactor <= 0 {
		overfetchFactor = 4
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create vector store dir: %w", err)
	}
	s := &Store{
		dir:       dir,
		embedder:  embedder,
		overfetch: overfetchFactor,
		entries:   make(map[string]Entry),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddChunks embeds each chunk's text and persists vector plus chunk
// metadata keyed by chunk ID. Embeddings are requested in one batch;
// output order matches input order. No-op on empty input.
func (s *Store) AddChunks(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.ChunkText
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ch := range chunks {
		s.entries[ch.ChunkID] = Entry{Chunk: ch, Vector: vectors[i]}
	}
	return s.save()
}

// Search embeds the query and returns at most k unique-text results by
// descending cosine similarity. When allowedDocIDs is non-nil, chunks
// from other documents are never returned. Results whose text is
// identical after case/whitespace normalization are deduplicated; the
// candidate set is over-fetched before deduplication so k unique results
// survive when the index holds them.
func (s *Store) Search(ctx context.Context, query string, k int, allowedDocIDs []string) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var allowed map[string]struct{}
	if allowedDocIDs != nil {
		allowed = make(map[string]struct{}, len(allowedDocIDs))
		for _, id := range allowedDocIDs {
			allowed[id] = struct{}{}
		}
	}

	s.mu.RLock()
	candidates := make([]SearchResult, 0, len(s.entries))
	for _, e := range s.entries {
		if allowed != nil {
			if _, ok := allowed[e.Chunk.DocID]; !ok {
				continue
			}
		}
		candidates = append(candidates, SearchResult{
			Chunk:      e.Chunk,
			Similarity: clamp01(cosine(vec, e.Vector)),
		})
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Chunk.ChunkID < candidates[j].Chunk.ChunkID
	})

	if fetch := k * s.overfetch; len(candidates) > fetch {
		candidates = candidates[:fetch]
	}

	seen := make(map[string]struct{}, k)
	results := make([]SearchResult, 0, k)
	for _, cand := range candidates {
		key := normalizeText(cand.Chunk.ChunkText)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, cand)
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// DeleteChunks removes the given IDs. Missing IDs are not errors.
func (s *Store) DeleteChunks(chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range chunkIDs {
		delete(s.entries, id)
	}
	return s.save()
}

// Reset clears and recreates the index.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	return s.save()
}

// Count reports the number of indexed chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) snapshotPath() string {
	return filepath.Join(s.dir, snapshotFile)
}

func (s *Store) load() error {
	f, err := os.Open(s.snapshotPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open vector snapshot: %w", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(&s.entries); err != nil {
		return fmt.Errorf("decode vector snapshot: %w", err)
	}
	return nil
}

// save writes the snapshot via a temp file rename so a crash mid-write
// never leaves a truncated snapshot. Callers hold the write lock.
func (s *Store) save() error {
	tmp := s.snapshotPath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write vector snapshot: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(s.entries); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode vector snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.snapshotPath())
}

// normalizeText lowercases and collapses whitespace so near-identical
// re-ingested content deduplicates in search results.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
