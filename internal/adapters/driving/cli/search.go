package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

var (
	searchLimit  int
	searchOffset int
	searchType   string
	searchFolder string
	searchTerms  []string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search the repository",
	Long: `Finds objects whose name, string properties or text content contain every
word of the query. Results can be narrowed to a type (including its subtypes),
to the children of a folder, or by exact field terms.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "only objects of this type or its subtypes")
	searchCmd.Flags().StringVar(&searchFolder, "folder", "", "only objects filed in this folder")
	searchCmd.Flags().StringArrayVar(&searchTerms, "term", nil, "exact field match as field=value, repeatable")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	q, err := buildQuery(ctx, args)
	if err != nil {
		return err
	}
	if q.IsEmpty() {
		return fmt.Errorf("search needs text, --type, --folder or --term")
	}

	results, err := conn.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchJSON {
		return printJSON(cmd, results)
	}
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	printObjects(cmd, results)
	return nil
}

func buildQuery(ctx context.Context, args []string) (domain.Query, error) {
	q := domain.Query{
		TypeID: searchType,
		Limit:  searchLimit,
		Offset: searchOffset,
	}
	if len(args) == 1 {
		q.Text = args[0]
	}
	if searchFolder != "" {
		id, err := resolveID(ctx, services.Connection, searchFolder)
		if err != nil {
			return q, err
		}
		q.FolderID = id
	}
	for _, t := range searchTerms {
		field, value, ok := strings.Cut(t, "=")
		if !ok || field == "" {
			return q, domain.InvalidArgumentf("term %q must be field=value", t)
		}
		if q.Terms == nil {
			q.Terms = make(map[string]string)
		}
		q.Terms[field] = value
	}
	return q, nil
}
