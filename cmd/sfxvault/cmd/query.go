package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sfxvault/sfxvault/internal/query"
	"github.com/sfxvault/sfxvault/internal/store"
)

// queryOptions holds CLI flags for query inspection.
type queryOptions struct {
	format  string // "tree", "json", "sql"
	showSQL bool
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Parse a query and show its expression tree",
		Long: `Parse a search query and print the resulting expression tree.

Malformed queries never fail; they degrade to a literal free-text
term matching the whole input.

Examples:
  sfxvault query 'explosion AND duration:>3s'
  sfxvault query '(rain OR wind) AND NOT tags:loop' --format json
  sfxvault query 'category:impacts' --sql`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			return runQuery(cmd, raw, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "tree", "Output format: tree, json")
	cmd.Flags().BoolVar(&opts.showSQL, "sql", false, "Also print the compiled SQL filter")

	return cmd
}

func runQuery(cmd *cobra.Command, raw string, opts queryOptions) error {
	q := query.Parse(raw)
	out := cmd.OutOrStdout()

	switch opts.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(nodeToJSON(q.Parsed)); err != nil {
			return err
		}
	case "tree":
		fmt.Fprintln(out, formatNode(q.Parsed, 0))
	default:
		return fmt.Errorf("unknown format %q (want tree or json)", opts.format)
	}

	if free := query.FreeText(q.Parsed); free != "" {
		fmt.Fprintf(out, "free text: %q\n", free)
	}

	if opts.showSQL {
		where, sqlArgs, err := store.CompileFilter(q.Parsed)
		if err != nil {
			return fmt.Errorf("compile filter: %w", err)
		}
		fmt.Fprintf(out, "sql: %s\n", where)
		fmt.Fprintf(out, "args: %v\n", sqlArgs)
	}
	return nil
}

// formatNode renders the tree with two-space indentation per level.
func formatNode(n query.Node, depth int) string {
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case *query.Term:
		var sb strings.Builder
		sb.WriteString(indent)
		if v.Negated {
			sb.WriteString("NOT ")
		}
		if v.Field != "" {
			fmt.Fprintf(&sb, "%s %s %q", v.Field, v.Op, v.Value)
		} else if v.IsMatchAll() {
			sb.WriteString("MATCH-ALL")
		} else {
			fmt.Fprintf(&sb, "%q", v.Value)
		}
		return sb.String()
	case *query.Expression:
		return fmt.Sprintf("%s%s\n%s\n%s",
			indent, v.Op,
			formatNode(v.Left, depth+1),
			formatNode(v.Right, depth+1))
	default:
		return indent + "?"
	}
}

func nodeToJSON(n query.Node) any {
	switch v := n.(type) {
	case *query.Term:
		m := map[string]any{"value": v.Value, "op": string(v.Op)}
		if v.Field != "" {
			m["field"] = v.Field
		}
		if v.Negated {
			m["negated"] = true
		}
		return m
	case *query.Expression:
		return map[string]any{
			"op":    string(v.Op),
			"left":  nodeToJSON(v.Left),
			"right": nodeToJSON(v.Right),
		}
	default:
		return nil
	}
}
