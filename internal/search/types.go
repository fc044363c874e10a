// Package search provides hybrid retrieval orchestration for the sound
// library. Lexical and semantic retrievers run independently and their
// ranked hit lists are fused with weighted Reciprocal Rank Fusion (RRF).
package search

import "context"

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search,
// OpenSearch, etc.).
const DefaultRRFConstant = 60

// DefaultTopK is the default fused result list size.
const DefaultTopK = 200

// Mode selects which retrieval sources an execution may use.
type Mode string

const (
	// ModeLexical enables only the lexical retriever.
	ModeLexical Mode = "lexical"
	// ModeSemantic enables only the semantic retriever.
	ModeSemantic Mode = "semantic"
	// ModeHybrid enables whichever retrievers are supplied.
	ModeHybrid Mode = "hybrid"
)

// Plan configures a single orchestrated query. It is a value object passed
// per call; the orchestrator never retains it.
type Plan struct {
	// Mode gates the retrieval sources (default: hybrid).
	Mode Mode

	// TopK is the maximum fused result count (default: 200).
	TopK int

	// RRFK is the RRF smoothing constant k (default: 60).
	RRFK int

	// LexicalWeight scales the lexical source's RRF contribution (default: 1.0).
	LexicalWeight float64

	// SemanticWeight scales the semantic source's RRF contribution (default: 1.0).
	SemanticWeight float64
}

// DefaultPlan returns the default hybrid plan.
func DefaultPlan() Plan {
	return Plan{
		Mode:           ModeHybrid,
		TopK:           DefaultTopK,
		RRFK:           DefaultRRFConstant,
		LexicalWeight:  1.0,
		SemanticWeight: 1.0,
	}
}

// normalized fills in defaults and clamps negative weights to zero.
func (p Plan) normalized() Plan {
	if p.Mode == "" {
		p.Mode = ModeHybrid
	}
	if p.TopK <= 0 {
		p.TopK = DefaultTopK
	}
	if p.RRFK < 1 {
		p.RRFK = DefaultRRFConstant
	}
	if p.LexicalWeight < 0 {
		p.LexicalWeight = 0
	}
	if p.SemanticWeight < 0 {
		p.SemanticWeight = 0
	}
	return p
}

// Hit is a single (key, score) element of a retriever's ranked output.
type Hit struct {
	Key   string
	Score float64
}

// Retriever is the capability contract for a retrieval source: given query
// text and a top-k budget, return a roughly score-ordered hit list. Concrete
// implementations (full-text index, embedding nearest-neighbor search) live
// outside this package.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Hit, error)
}

// RetrieverFunc adapts a plain function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, query string, topK int) ([]Hit, error)

// Retrieve implements Retriever.
func (f RetrieverFunc) Retrieve(ctx context.Context, query string, topK int) ([]Hit, error) {
	return f(ctx, query, topK)
}

// Item is a single fused result. Score is the RRF score in hybrid fusion,
// or the raw source score when only one source contributed. LexicalScore
// and SemanticScore carry the pre-fusion per-source scores and are nil for
// sources that did not return the key.
type Item struct {
	Key           string
	Score         float64
	LexicalScore  *float64
	SemanticScore *float64
}

// Observation accumulates per-phase wall-clock timings and counts for one
// execution. Purely diagnostic; never affects ranking.
type Observation struct {
	LexicalMillis  float64 `json:"lexical_ms"`
	SemanticMillis float64 `json:"semantic_ms"`
	FuseMillis     float64 `json:"fuse_ms"`
	TotalMillis    float64 `json:"total_ms"`

	// Post-dedup hit counts per source, and the final fused count.
	LexicalCount  int `json:"lexical_count"`
	SemanticCount int `json:"semantic_count"`
	FusedCount    int `json:"fused_count"`

	// Retriever failures degrade that source to zero hits; the error text
	// is kept here for diagnostics.
	LexicalError  string `json:"lexical_error,omitempty"`
	SemanticError string `json:"semantic_error,omitempty"`
}

// Result pairs the fused ranked items with the execution observation.
type Result struct {
	Items       []Item
	Observation Observation
}
