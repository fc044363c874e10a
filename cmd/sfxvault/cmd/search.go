package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sfxvault/sfxvault/internal/config"
	"github.com/sfxvault/sfxvault/internal/embed"
	sferrors "github.com/sfxvault/sfxvault/internal/errors"
	"github.com/sfxvault/sfxvault/internal/output"
	"github.com/sfxvault/sfxvault/internal/query"
	"github.com/sfxvault/sfxvault/internal/retriever"
	"github.com/sfxvault/sfxvault/internal/search"
	"github.com/sfxvault/sfxvault/internal/store"
	"github.com/sfxvault/sfxvault/internal/telemetry"
)

type searchOptions struct {
	limit    int
	mode     string // "hybrid", "lexical", "semantic"
	format   string // "text", "json"
	database string
	explain  bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the sound library",
		Long: `Search the sound library using hybrid retrieval.

Free text runs through both the lexical (BM25) and semantic
(embedding) retrievers and the ranked lists are fused with
Rank-Reciprocal Fusion. Field predicates filter the catalog:

  sfxvault search "metal impact"
  sfxvault search "explosion AND duration:<3s"
  sfxvault search '(rain OR wind) AND category:ambience' --format json
  sfxvault search "whoosh" --mode lexical --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Retrieval mode: hybrid, lexical, semantic")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.database, "db", "", "Catalog database path (default from config)")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show per-source scores and timings")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, raw string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	var modeOverride search.Mode
	if opts.mode != "" {
		m, err := parseMode(opts.mode)
		if err != nil {
			return err
		}
		modeOverride = m
	}

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	dbPath := opts.database
	if dbPath == "" {
		dbPath = cfg.Paths.Database
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return sferrors.New(sferrors.ErrCodeFileNotFound,
			fmt.Sprintf("catalog %s does not exist", dbPath), err).
			WithSuggestion("run 'sfxvault index' first")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	q := query.Parse(raw)
	slog.Info("search started", "query", raw, "limit", opts.limit)

	// Field predicates narrow the candidate set before fusion results are
	// presented. Free text drives the retrievers.
	allowed, err := allowedIDs(ctx, st, q)
	if err != nil {
		return err
	}
	retrieverQuery := query.FreeText(q.Parsed)
	if retrieverQuery == "" {
		retrieverQuery = raw
	}

	lexical, semantic, closeRetrievers, err := buildRetrievers(ctx, st, cfg)
	if err != nil {
		return err
	}
	defer closeRetrievers()

	plan := cfg.Plan()
	if modeOverride != "" {
		plan.Mode = modeOverride
	}
	// Overfetch so post-filter truncation still fills the limit.
	plan.TopK = opts.limit * 4

	metrics := telemetry.NewQueryMetrics()
	orch := search.NewOrchestrator(search.WithMetrics(metrics))
	res, err := orch.Execute(ctx, retrieverQuery, plan, lexical, semantic)
	if err != nil {
		return err
	}

	items := res.Items
	if allowed != nil {
		items = filterItems(items, allowed)
	}
	if len(items) > opts.limit {
		items = items[:opts.limit]
	}

	return renderResults(ctx, cmd, out, st, items, res, metrics, opts)
}

// parseMode validates a retrieval mode flag value.
func parseMode(s string) (search.Mode, error) {
	switch m := search.Mode(strings.ToLower(s)); m {
	case search.ModeLexical, search.ModeSemantic, search.ModeHybrid:
		return m, nil
	}
	return "", sferrors.ValidationError(
		fmt.Sprintf("invalid mode %q: must be lexical, semantic, or hybrid", s), nil)
}

// allowedIDs compiles the query's field predicates into a catalog filter.
// A pure free-text query returns nil, meaning no restriction.
func allowedIDs(ctx context.Context, st *store.Store, q *query.Query) (map[string]bool, error) {
	if !hasFieldPredicate(q.Parsed) {
		return nil, nil
	}
	where, args, err := store.CompileFilter(q.Parsed)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.ErrCodeInvalidFilter, err)
	}
	ids, err := st.MatchingIDs(ctx, where, args)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	return allowed, nil
}

func hasFieldPredicate(n query.Node) bool {
	switch v := n.(type) {
	case *query.Term:
		return v.Field != "" || v.Negated
	case *query.Expression:
		if v.Op == query.BoolNot {
			return true
		}
		return hasFieldPredicate(v.Left) || hasFieldPredicate(v.Right)
	}
	return false
}

func filterItems(items []search.Item, allowed map[string]bool) []search.Item {
	out := make([]search.Item, 0, len(items))
	for _, it := range items {
		if allowed[it.Key] {
			out = append(out, it)
		}
	}
	return out
}

// buildRetrievers constructs in-memory lexical and semantic indexes from
// the catalog. Rebuilding per invocation keeps the CLI stateless; the
// catalog is the only durable store.
func buildRetrievers(ctx context.Context, st *store.Store, cfg *config.Config) (search.Retriever, search.Retriever, func(), error) {
	sounds, err := st.AllSounds(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	lexical, err := retriever.NewBleveLexical(cfg.Paths.LexicalIndex)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := lexical.Index(ctx, sounds); err != nil {
		lexical.Close()
		return nil, nil, nil, err
	}

	embedder := embed.NewStaticEmbedder()
	semantic := retriever.NewHNSWSemantic(embedder)

	ids, vectors, err := st.LoadEmbeddings(ctx, embedder.ModelName())
	if err != nil {
		lexical.Close()
		return nil, nil, nil, err
	}
	if len(ids) > 0 {
		if err := semantic.Add(ids, vectors); err != nil {
			lexical.Close()
			return nil, nil, nil, err
		}
	} else {
		// No stored vectors for this model; embed on the fly.
		texts := make([]string, len(sounds))
		soundIDs := make([]string, len(sounds))
		for i, s := range sounds {
			soundIDs[i] = s.ID
			texts[i] = searchableText(s)
		}
		if err := semantic.IndexTexts(ctx, soundIDs, texts); err != nil {
			lexical.Close()
			return nil, nil, nil, err
		}
	}

	return lexical, semantic, func() { lexical.Close() }, nil
}

type searchResultJSON struct {
	Items       []itemJSON         `json:"items"`
	Observation search.Observation `json:"observation"`
}

type itemJSON struct {
	ID            string   `json:"id"`
	Name          string   `json:"name,omitempty"`
	Path          string   `json:"path,omitempty"`
	Score         float64  `json:"score"`
	LexicalScore  *float64 `json:"lexical_score,omitempty"`
	SemanticScore *float64 `json:"semantic_score,omitempty"`
}

func renderResults(ctx context.Context, cmd *cobra.Command, out *output.Writer, st *store.Store, items []search.Item, res *search.Result, metrics *telemetry.QueryMetrics, opts searchOptions) error {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.Key
	}
	sounds, err := st.GetSounds(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*store.Sound, len(sounds))
	for _, s := range sounds {
		byID[s.ID] = s
	}

	if opts.format == "json" {
		payload := searchResultJSON{Observation: res.Observation, Items: []itemJSON{}}
		for _, it := range items {
			row := itemJSON{
				ID:            it.Key,
				Score:         it.Score,
				LexicalScore:  it.LexicalScore,
				SemanticScore: it.SemanticScore,
			}
			if s, ok := byID[it.Key]; ok {
				row.Name = s.Name
				row.Path = s.Path
			}
			payload.Items = append(payload.Items, row)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	if len(items) == 0 {
		out.Warning("no results")
		return nil
	}

	rows := make([][]string, 0, len(items)+1)
	for i, it := range items {
		name, path := it.Key, ""
		if s, ok := byID[it.Key]; ok {
			name, path = s.Name, s.Path
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d.", i+1),
			name,
			fmt.Sprintf("%.4f", it.Score),
			path,
		})
	}
	out.Table(rows)

	if opts.explain {
		out.Newline()
		obs := res.Observation
		out.Statusf("", "lexical: %d hits in %.2fms, semantic: %d hits in %.2fms",
			obs.LexicalCount, obs.LexicalMillis, obs.SemanticCount, obs.SemanticMillis)
		out.Statusf("", "fuse: %d items in %.2fms, total %.2fms",
			obs.FusedCount, obs.FuseMillis, obs.TotalMillis)
		if obs.LexicalError != "" {
			out.Warningf("lexical source degraded: %s", obs.LexicalError)
		}
		if obs.SemanticError != "" {
			out.Warningf("semantic source degraded: %s", obs.SemanticError)
		}

		snap := metrics.Snapshot()
		terms := make([]string, 0, len(snap.TopTerms))
		for _, tc := range snap.TopTerms {
			terms = append(terms, tc.Term)
		}
		out.Statusf("", "telemetry: %d queries recorded, zero-result %.0f%%, terms: %s",
			snap.TotalQueries, snap.ZeroResultPercentage(), strings.Join(terms, " "))
	}
	return nil
}
