package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Melik1986/sortcore/internal/store"
)

// addOptions holds CLI flags for add.
type addOptions struct {
	title       string
	category    string
	subcategory string
	tags        []string
	languages   []string
	frameworks  []string
	topics      []string
	difficulty  string
	contentType string
	confidence  float64
	file        string
}

func newAddCmd() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Index a content resource",
		Long: `Add a resource to the index. Content comes from the argument,
--file, or stdin, in that order of preference.

Examples:
  sortcore add "goroutines are lightweight threads" --title "Go concurrency" --tags go,concurrency
  sortcore add --file notes/http.md --category programming --languages go`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := resolveContent(args, opts.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runAdd(cmd.Context(), cmd, content, opts)
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "Resource title")
	cmd.Flags().StringVar(&opts.category, "category", "", "Category")
	cmd.Flags().StringVar(&opts.subcategory, "subcategory", "", "Subcategory")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "Tags (comma separated)")
	cmd.Flags().StringSliceVar(&opts.languages, "languages", nil, "Programming languages")
	cmd.Flags().StringSliceVar(&opts.frameworks, "frameworks", nil, "Frameworks")
	cmd.Flags().StringSliceVar(&opts.topics, "topics", nil, "Topics")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", "", "Difficulty level")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "", "Content type (article, snippet, ...)")
	cmd.Flags().Float64Var(&opts.confidence, "confidence", 1.0, "Classification confidence in [0,1]")
	cmd.Flags().StringVar(&opts.file, "file", "", "Read content from file")

	return cmd
}

func resolveContent(args []string, file string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func runAdd(ctx context.Context, cmd *cobra.Command, content string, opts addOptions) error {
	engine, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	r := &store.Resource{
		Title:       opts.title,
		Content:     content,
		Category:    opts.category,
		Subcategory: opts.subcategory,
		Tags:        opts.tags,
		Languages:   opts.languages,
		Frameworks:  opts.frameworks,
		Topics:      opts.topics,
		Difficulty:  opts.difficulty,
		ContentType: opts.contentType,
		Confidence:  opts.confidence,
		FilePath:    opts.file,
		CreatedDate: time.Now().UTC().Format(time.RFC3339),
	}
	id, err := engine.AddResource(ctx, r)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
