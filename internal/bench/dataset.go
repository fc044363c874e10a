package bench

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/sfxvault/sfxvault/internal/search"
)

// SyntheticDataset produces deterministic lexical and semantic retrievers
// over a virtual record space, without indexing anything. Hit lists are
// derived from a hash of the query, so repeated runs with the same seed see
// identical rankings while different queries land in different regions of
// the key space. The two sources share roughly three quarters of their
// top-k keys, exercising both the fusion path and the overlap statistics.
type SyntheticDataset struct {
	Records int
	Seed    int64
}

// NewSyntheticDataset creates a dataset over the given number of records.
func NewSyntheticDataset(records int, seed int64) *SyntheticDataset {
	return &SyntheticDataset{Records: records, Seed: seed}
}

// Queries generates n deterministic query strings.
func (d *SyntheticDataset) Queries(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("synthetic impact layer %d seed %d", i, d.Seed)
	}
	return out
}

// key formats a record index as a catalog ID.
func (d *SyntheticDataset) key(idx int) string {
	return fmt.Sprintf("sfx-%07d", ((idx%d.Records)+d.Records)%d.Records)
}

// queryBase maps a query string to a stable starting index.
func (d *SyntheticDataset) queryBase(query string) int {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d", query, d.Seed)
	return int(h.Sum64() % uint64(d.Records))
}

// LexicalRetriever returns hits from a sequential window starting at the
// query's base index, with monotonically decreasing scores.
func (d *SyntheticDataset) LexicalRetriever() search.Retriever {
	return search.RetrieverFunc(func(_ context.Context, query string, topK int) ([]search.Hit, error) {
		base := d.queryBase(query)
		hits := make([]search.Hit, 0, topK)
		for i := 0; i < topK && i < d.Records; i++ {
			hits = append(hits, search.Hit{
				Key:   d.key(base + i),
				Score: 10.0 / float64(i+1),
			})
		}
		return hits, nil
	})
}

// SemanticRetriever returns a permuted view of the same window. Every
// fourth rank is replaced with a key from the far side of the record space,
// so roughly 25% of the semantic top-k is disjoint from the lexical top-k.
func (d *SyntheticDataset) SemanticRetriever() search.Retriever {
	return search.RetrieverFunc(func(_ context.Context, query string, topK int) ([]search.Hit, error) {
		base := d.queryBase(query)
		hits := make([]search.Hit, 0, topK)
		for i := 0; i < topK && i < d.Records; i++ {
			var key string
			if i%4 == 3 {
				key = d.key(base + d.Records/2 + i)
			} else {
				key = d.key(base + (i*7)%topK)
			}
			hits = append(hits, search.Hit{
				Key:   key,
				Score: 1.0 - float64(i)*0.9/float64(topK),
			})
		}
		return hits, nil
	})
}
