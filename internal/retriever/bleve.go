// Package retriever provides concrete retrieval sources implementing the
// search.Retriever capability: a Bleve-backed lexical index and an
// HNSW-backed semantic index over sound metadata.
package retriever

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/sfxvault/sfxvault/internal/search"
	"github.com/sfxvault/sfxvault/internal/store"
)

// bleveSoundDoc is the document shape indexed for lexical search. Name,
// tags, and category are folded into one content field so a single match
// query covers the default search surface.
type bleveSoundDoc struct {
	Content string `json:"content"`
}

// BleveLexical is a lexical retriever over a Bleve index of sound metadata.
type BleveLexical struct {
	mu    sync.RWMutex
	index bleve.Index
}

// Ensure the capability contract is satisfied.
var _ search.Retriever = (*BleveLexical)(nil)

// NewBleveLexical opens or creates a Bleve index at path. An empty path
// creates an in-memory index.
func NewBleveLexical(path string) (*BleveLexical, error) {
	mapping := bleve.NewIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	return &BleveLexical{index: idx}, nil
}

// Index adds sounds to the lexical index in one batch.
func (r *BleveLexical) Index(_ context.Context, sounds []*store.Sound) error {
	if len(sounds) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	batch := r.index.NewBatch()
	for _, s := range sounds {
		doc := bleveSoundDoc{Content: soundContent(s)}
		if err := batch.Index(s.ID, doc); err != nil {
			return fmt.Errorf("index sound %s: %w", s.ID, err)
		}
	}
	if err := r.index.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	return nil
}

// Delete removes sounds from the index.
func (r *BleveLexical) Delete(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	batch := r.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return r.index.Batch(batch)
}

// Retrieve implements search.Retriever with a BM25-scored match query.
func (r *BleveLexical) Retrieve(ctx context.Context, query string, topK int) ([]search.Hit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if strings.TrimSpace(query) == "" {
		return []search.Hit{}, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = topK

	res, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]search.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, search.Hit{Key: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Close releases the underlying index.
func (r *BleveLexical) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Close()
}

// soundContent joins the searchable text fields of a sound.
func soundContent(s *store.Sound) string {
	parts := []string{s.Name}
	if len(s.Tags) > 0 {
		parts = append(parts, strings.Join(s.Tags, " "))
	}
	if s.Category != "" {
		parts = append(parts, s.Category)
	}
	return strings.Join(parts, " ")
}
