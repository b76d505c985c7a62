package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Melik1986/sortcore/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit         int
	categories    []string
	languages     []string
	tags          []string
	difficulty    []string
	minConfidence float64
	minSimilarity float64
	dateFrom      string
	dateTo        string
	strategies    []string
	format        string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed resources",
		Long: `Search indexed resources using hybrid retrieval.

Combines semantic, TF-IDF, keyword and metadata strategies, fusing
their scores into one ranking.

Examples:
  sortcore search "python decorators"
  sortcore search "web scraping" --languages python --limit 5
  sortcore search "testing" --strategies lexical,keyword --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringSliceVar(&opts.categories, "categories", nil, "Filter by category")
	cmd.Flags().StringSliceVarP(&opts.languages, "languages", "l", nil, "Filter by programming language")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "Filter by tag")
	cmd.Flags().StringSliceVar(&opts.difficulty, "difficulty", nil, "Filter by difficulty level")
	cmd.Flags().Float64Var(&opts.minConfidence, "min-confidence", 0, "Minimum classification confidence")
	cmd.Flags().Float64Var(&opts.minSimilarity, "min-similarity", 0, "Similarity floor for semantic and lexical hits")
	cmd.Flags().StringVar(&opts.dateFrom, "from", "", "Creation date lower bound (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.dateTo, "to", "", "Creation date upper bound (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&opts.strategies, "strategies", nil, "Restrict to strategies: semantic, lexical, keyword, metadata, tag")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	engine, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	searchOpts, err := buildSearchOptions(opts)
	if err != nil {
		return err
	}
	results, err := engine.Search(ctx, search.QuerySpec{Text: query}, searchOpts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(searchOutput(results))
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for i, r := range results {
		title := r.Resource.Title
		if title == "" {
			title = r.Resource.ID
		}
		fmt.Fprintf(out, "%2d. %s  (score %.3f, via %s)\n", i+1, title, r.Score, joinStrategies(r.MatchedStrategies))
		if r.Resource.ContentPreview != "" {
			fmt.Fprintf(out, "    %s\n", r.Resource.ContentPreview)
		}
	}
	return nil
}

func buildSearchOptions(opts searchOptions) (search.SearchOptions, error) {
	so := search.SearchOptions{
		TopK:          opts.limit,
		MinSimilarity: opts.minSimilarity,
		Filters: search.FilterSet{
			Categories:    opts.categories,
			Languages:     opts.languages,
			Tags:          opts.tags,
			Difficulty:    opts.difficulty,
			MinConfidence: opts.minConfidence,
		},
	}
	for _, s := range opts.strategies {
		strat := search.Strategy(strings.ToLower(strings.TrimSpace(s)))
		switch strat {
		case search.StrategySemantic, search.StrategyLexical, search.StrategyKeyword,
			search.StrategyMetadata, search.StrategyTag:
			so.Strategies = append(so.Strategies, strat)
		default:
			return so, fmt.Errorf("unknown strategy %q", s)
		}
	}
	if opts.dateFrom != "" {
		ts, err := time.Parse("2006-01-02", opts.dateFrom)
		if err != nil {
			return so, fmt.Errorf("invalid --from date: %w", err)
		}
		so.Filters.DateFrom = ts
	}
	if opts.dateTo != "" {
		ts, err := time.Parse("2006-01-02", opts.dateTo)
		if err != nil {
			return so, fmt.Errorf("invalid --to date: %w", err)
		}
		so.Filters.DateTo = ts
	}
	return so, nil
}

// resultJSON is the JSON output shape for one search hit.
type resultJSON struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Preview    string   `json:"preview,omitempty"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Score      float64  `json:"score"`
	Strategies []string `json:"strategies"`
}

func searchOutput(results []*search.RankedResult) []resultJSON {
	out := make([]resultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, resultJSON{
			ID:         r.Resource.ID,
			Title:      r.Resource.Title,
			Preview:    r.Resource.ContentPreview,
			Category:   r.Resource.Category,
			Tags:       r.Resource.Tags,
			Score:      r.Score,
			Strategies: strategyNames(r.MatchedStrategies),
		})
	}
	return out
}

func strategyNames(strategies []search.Strategy) []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = string(s)
	}
	return names
}

func joinStrategies(strategies []search.Strategy) string {
	return strings.Join(strategyNames(strategies), ", ")
}
