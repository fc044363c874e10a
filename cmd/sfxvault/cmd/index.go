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
	"github.com/sfxvault/sfxvault/internal/output"
	"github.com/sfxvault/sfxvault/internal/store"
)

// stateKeyEmbedModel records which embedder produced the stored vectors.
const stateKeyEmbedModel = "embed_model"

type indexOptions struct {
	input    string
	database string
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Import sound metadata into the catalog",
		Long: `Import sound metadata from a JSON file into the catalog database
and precompute embeddings for semantic search.

The input file holds an array of sound records:
  [{"id": "...", "name": "...", "path": "...", "tags": [...], "duration_secs": 2.4}, ...]`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "JSON file of sound records (required)")
	cmd.Flags().StringVar(&opts.database, "db", "", "Catalog database path (default from config)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	dbPath := opts.database
	if dbPath == "" {
		dbPath = cfg.Paths.Database
	}

	data, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var sounds []*store.Sound
	if err := json.Unmarshal(data, &sounds); err != nil {
		return fmt.Errorf("parse input %s: %w", opts.input, err)
	}
	if len(sounds) == 0 {
		out.Warning("input contains no sound records")
		return nil
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveSounds(ctx, sounds); err != nil {
		return err
	}
	slog.Info("catalog updated", "records", len(sounds), "database", dbPath)

	// Precompute embeddings over the searchable text of each record.
	embedder := embed.NewStaticEmbedder()
	ids := make([]string, len(sounds))
	texts := make([]string, len(sounds))
	for i, s := range sounds {
		ids[i] = s.ID
		texts[i] = searchableText(s)
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed sounds: %w", err)
	}
	if err := st.SaveEmbeddings(ctx, embedder.ModelName(), ids, vectors); err != nil {
		return err
	}
	if err := st.SetState(ctx, stateKeyEmbedModel, embedder.ModelName()); err != nil {
		return err
	}

	total, err := st.Count(ctx)
	if err != nil {
		return err
	}
	out.Successf("indexed %d sounds (%d total in catalog)", len(sounds), total)
	return nil
}

// searchableText joins the fields covered by free-text search.
func searchableText(s *store.Sound) string {
	parts := []string{s.Name}
	if len(s.Tags) > 0 {
		parts = append(parts, strings.Join(s.Tags, " "))
	}
	if s.Category != "" {
		parts = append(parts, s.Category)
	}
	return strings.Join(parts, " ")
}
