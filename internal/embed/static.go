package embed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// StaticDimensions is the dimensionality of static embeddings.
const StaticDimensions = 384

// Feature weights for vector generation. Tokens carry most of the signal;
// character trigrams smooth over spelling variants ("whoosh" vs "woosh").
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// tokenRegex matches alphanumeric runs.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// StaticEmbedder generates embeddings by feature hashing. It needs no
// network and no model download, is fully deterministic, and trades
// semantic quality for availability. Used for offline mode, the benchmark
// harness, and tests.
type StaticEmbedder struct {
	dims int
}

// NewStaticEmbedder creates a static embedder with the default dimensions.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{dims: StaticDimensions}
}

// Embed generates an embedding for a single text.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dims), nil
	}
	return normalizeVector(e.generateVector(trimmed)), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimensionality.
func (e *StaticEmbedder) Dimensions() int {
	return e.dims
}

// ModelName identifies this embedder.
func (e *StaticEmbedder) ModelName() string {
	return "static-hash-384"
}

// generateVector hashes lowercased tokens and character trigrams into the
// vector's buckets.
func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, e.dims)

	for _, token := range tokenRegex.FindAllString(text, -1) {
		idx := hashToIndex(strings.ToLower(token), e.dims)
		vector[idx] += tokenWeight
	}

	normalized := strings.ToLower(strings.Join(tokenRegex.FindAllString(text, -1), " "))
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		idx := hashToIndex(ngram, e.dims)
		vector[idx] += ngramWeight
	}

	return vector
}

func hashToIndex(s string, dims int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(dims))
}

func extractNgrams(s string, n int) []string {
	if len(s) < n {
		return nil
	}
	grams := make([]string, 0, len(s)-n+1)
	for i := 0; i+n <= len(s); i++ {
		grams = append(grams, s[i:i+n])
	}
	return grams
}

// normalizeVector scales a vector to unit length. Zero vectors pass
// through unchanged.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
