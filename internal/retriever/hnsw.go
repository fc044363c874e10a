package retriever

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	"github.com/sfxvault/sfxvault/internal/embed"
	"github.com/sfxvault/sfxvault/internal/search"
)

// HNSW parameters. M and EfSearch follow the library's recommended
// defaults; Ml is the level generation factor (roughly 1/ln(M)).
const (
	hnswM        = 16
	hnswEfSearch = 20
	hnswMl       = 0.25
)

// HNSWSemantic is a semantic retriever backed by an in-memory HNSW graph.
// Query text is embedded through the configured Embedder and matched
// against indexed vectors by cosine similarity.
type HNSWSemantic struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[string]
	embedder embed.Embedder

	// live tracks which keys are current. Deletion is lazy: the node
	// stays in the graph but is filtered out of results, which avoids
	// graph corruption when removing the last node.
	live map[string]bool
}

var _ search.Retriever = (*HNSWSemantic)(nil)

// NewHNSWSemantic creates a semantic retriever using the given embedder.
func NewHNSWSemantic(embedder embed.Embedder) *HNSWSemantic {
	graph := hnsw.NewGraph[string]()
	graph.Distance = hnsw.CosineDistance
	graph.M = hnswM
	graph.EfSearch = hnswEfSearch
	graph.Ml = hnswMl

	return &HNSWSemantic{
		graph:    graph,
		embedder: embedder,
		live:     make(map[string]bool),
	}
}

// Add inserts vectors keyed by ID. Existing IDs are replaced.
func (r *HNSWSemantic) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	dims := r.embedder.Dimensions()

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, id := range ids {
		if len(vectors[i]) != dims {
			return fmt.Errorf("vector for %s has %d dimensions, want %d", id, len(vectors[i]), dims)
		}
		r.graph.Add(hnsw.MakeNode(id, vectors[i]))
		r.live[id] = true
	}
	return nil
}

// IndexTexts embeds texts and inserts the resulting vectors.
func (r *HNSWSemantic) IndexTexts(ctx context.Context, ids []string, texts []string) error {
	if len(ids) != len(texts) {
		return fmt.Errorf("ids and texts length mismatch: %d vs %d", len(ids), len(texts))
	}
	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	return r.Add(ids, vectors)
}

// Delete removes IDs from the live set. Nodes stay in the graph but are
// excluded from results.
func (r *HNSWSemantic) Delete(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.live, id)
	}
}

// Len reports the number of live vectors.
func (r *HNSWSemantic) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Retrieve implements search.Retriever. Scores are cosine similarity,
// computed as 1 - distance.
func (r *HNSWSemantic) Retrieve(ctx context.Context, query string, topK int) ([]search.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return []search.Hit{}, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.graph.Len() == 0 {
		return []search.Hit{}, nil
	}

	// Overfetch to compensate for lazily deleted nodes.
	fetch := topK
	if dead := r.graph.Len() - len(r.live); dead > 0 {
		fetch += dead
	}

	nodes := r.graph.Search(vec, fetch)

	hits := make([]search.Hit, 0, topK)
	for _, node := range nodes {
		if !r.live[node.Key] {
			continue
		}
		distance := r.graph.Distance(vec, node.Value)
		hits = append(hits, search.Hit{Key: node.Key, Score: 1 - float64(distance)})
		if len(hits) == topK {
			break
		}
	}
	return hits, nil
}
