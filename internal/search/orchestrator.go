package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sfxvault/sfxvault/internal/telemetry"
)

// Orchestrator runs the enabled retrievers for a query, normalizes their
// hit lists, and fuses them into a single ranked result.
//
// The orchestrator is stateless with respect to queries and safe for
// concurrent use.
type Orchestrator struct {
	metrics *telemetry.QueryMetrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics sets an optional query metrics collector. When set, query
// latency, mode, and result counts are recorded per execution.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs the query against the retrievers enabled by the plan's mode
// and returns the fused ranked items plus timing/count observations.
//
// Either retriever may be nil. A retriever error degrades that source to
// zero hits rather than failing the query; the error text is recorded in
// the observation. The returned error is reserved for context cancellation.
//
// With deterministic retrievers, identical inputs produce identical items
// (order and scores); only the observation timings vary.
func (o *Orchestrator) Execute(
	ctx context.Context,
	queryText string,
	plan Plan,
	lexical Retriever,
	semantic Retriever,
) (*Result, error) {
	start := time.Now()
	plan = plan.normalized()

	if plan.Mode != ModeSemantic && plan.Mode != ModeHybrid {
		semantic = nil
	}
	if plan.Mode != ModeLexical && plan.Mode != ModeHybrid {
		lexical = nil
	}

	obs := Observation{}
	var lexHits, semHits []Hit

	// The two retrievals are read-only and independent; dispatch them
	// concurrently and join before fusion. Each call is timed on its own
	// goroutine so per-source latency stays accurate.
	g, gctx := errgroup.WithContext(ctx)

	if lexical != nil {
		g.Go(func() error {
			phase := time.Now()
			hits, err := lexical.Retrieve(gctx, queryText, plan.TopK)
			obs.LexicalMillis = millisSince(phase)
			if err != nil {
				obs.LexicalError = err.Error()
				slog.Warn("lexical retrieval failed, degrading to zero hits",
					slog.String("error", err.Error()))
				return nil
			}
			lexHits = hits
			return nil
		})
	}

	if semantic != nil {
		g.Go(func() error {
			phase := time.Now()
			hits, err := semantic.Retrieve(gctx, queryText, plan.TopK)
			obs.SemanticMillis = millisSince(phase)
			if err != nil {
				obs.SemanticError = err.Error()
				slog.Warn("semantic retrieval failed, degrading to zero hits",
					slog.String("error", err.Error()))
				return nil
			}
			semHits = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lexHits = normalizeHits(lexHits)
	semHits = normalizeHits(semHits)
	obs.LexicalCount = len(lexHits)
	obs.SemanticCount = len(semHits)

	// Three-way merge branch. This is behavioral, not an optimization: it
	// decides which score fields the output items carry.
	fuseStart := time.Now()
	var items []Item
	switch {
	case len(lexHits) > 0 && len(semHits) > 0:
		items = fuseRRF(lexHits, semHits, plan)
	case len(lexHits) > 0:
		items = singleSourceItems(lexHits, plan.TopK, sourceLexical)
	case len(semHits) > 0:
		items = singleSourceItems(semHits, plan.TopK, sourceSemantic)
	default:
		items = []Item{}
	}
	obs.FuseMillis = millisSince(fuseStart)
	obs.FusedCount = len(items)
	obs.TotalMillis = millisSince(start)

	o.recordMetrics(queryText, plan.Mode, len(items), time.Since(start))

	return &Result{Items: items, Observation: obs}, nil
}

// normalizeHits deduplicates a raw hit list by key. The first occurrence of
// a key determines its position in the output, but its score is updated to
// the maximum seen across duplicates. Both properties matter downstream:
// position feeds RRF rank, score is surfaced on the fused item.
func normalizeHits(hits []Hit) []Hit {
	if len(hits) == 0 {
		return hits
	}

	out := make([]Hit, 0, len(hits))
	index := make(map[string]int, len(hits))
	for _, h := range hits {
		if at, seen := index[h.Key]; seen {
			if h.Score > out[at].Score {
				out[at].Score = h.Score
			}
			continue
		}
		index[h.Key] = len(out)
		out = append(out, h)
	}
	return out
}

type source int

const (
	sourceLexical source = iota
	sourceSemantic
)

// singleSourceItems maps one source's normalized hits directly to items,
// skipping RRF. Only that source's score field is populated.
func singleSourceItems(hits []Hit, topK int, src source) []Item {
	if len(hits) > topK {
		hits = hits[:topK]
	}
	items := make([]Item, len(hits))
	for i, h := range hits {
		score := h.Score
		items[i] = Item{Key: h.Key, Score: h.Score}
		if src == sourceLexical {
			items[i].LexicalScore = &score
		} else {
			items[i].SemanticScore = &score
		}
	}
	return items
}

// fuseRRF combines two normalized hit lists with weighted Reciprocal Rank
// Fusion: fused(key) = Σ weight_src / (k + rank_src), rank 1-based.
//
// Ties keep insertion order into the fused score map: lexical hits are
// processed first, then semantic, each in first-seen rank order. The stable
// sort preserves that order so results are deterministic across runs.
func fuseRRF(lexHits, semHits []Hit, plan Plan) []Item {
	order := make([]string, 0, len(lexHits)+len(semHits))
	fused := make(map[string]float64, len(lexHits)+len(semHits))

	lexScores := make(map[string]float64, len(lexHits))
	for rank, h := range lexHits {
		if _, seen := fused[h.Key]; !seen {
			order = append(order, h.Key)
		}
		fused[h.Key] += plan.LexicalWeight / float64(plan.RRFK+rank+1)
		lexScores[h.Key] = h.Score
	}

	semScores := make(map[string]float64, len(semHits))
	for rank, h := range semHits {
		if _, seen := fused[h.Key]; !seen {
			order = append(order, h.Key)
		}
		fused[h.Key] += plan.SemanticWeight / float64(plan.RRFK+rank+1)
		semScores[h.Key] = h.Score
	}

	sort.SliceStable(order, func(i, j int) bool {
		return fused[order[i]] > fused[order[j]]
	})

	if len(order) > plan.TopK {
		order = order[:plan.TopK]
	}

	items := make([]Item, len(order))
	for i, key := range order {
		item := Item{Key: key, Score: fused[key]}
		if s, ok := lexScores[key]; ok {
			score := s
			item.LexicalScore = &score
		}
		if s, ok := semScores[key]; ok {
			score := s
			item.SemanticScore = &score
		}
		items[i] = item
	}
	return items
}

// recordMetrics forwards the execution to the telemetry collector if one
// is configured.
func (o *Orchestrator) recordMetrics(queryText string, mode Mode, resultCount int, latency time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.Record(telemetry.QueryEvent{
		Query:       queryText,
		Mode:        string(mode),
		ResultCount: resultCount,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}

func millisSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
