package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and maintain the search index",
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

var indexFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Write buffered index changes to the durable index",
	Args:  cobra.NoArgs,
	RunE:  runIndexFlush,
}

func init() {
	indexCmd.AddCommand(indexStatusCmd, indexFlushCmd)
	rootCmd.AddCommand(indexCmd)
}

func indexAdmin() (IndexAdmin, error) {
	if services == nil || services.Index == nil {
		return nil, errors.New("search index not configured")
	}
	return services.Index, nil
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	idx, err := indexAdmin()
	if err != nil {
		return err
	}
	stats, err := idx.Stats(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Println("Index Status")
	cmd.Println("============")
	cmd.Printf("  Documents:   %d\n", stats.Visible)
	cmd.Printf("  Durable:     %d (generation %d)\n", stats.Durable, stats.Generation)
	cmd.Printf("  Buffered:    %d in %d keepers\n", stats.Buffered, stats.Keepers)
	if stats.Uncommitted {
		cmd.Println("  Transaction logs pending replay")
	}
	return nil
}

func runIndexFlush(cmd *cobra.Command, _ []string) error {
	idx, err := indexAdmin()
	if err != nil {
		return err
	}
	if err := idx.Flush(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Index flushed.")
	return nil
}
