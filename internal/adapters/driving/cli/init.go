package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

var (
	initDataDir  string
	initIndexDir string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Configure a persistent repository",
	Long: `Switches the repository and the search index to SQLite. Relative
directories are resolved against the configuration directory.`,
	Annotations: map[string]string{annotationSettings: "true"},
	Args:        cobra.NoArgs,
	RunE:        runInit,
}

func init() {
	initCmd.Flags().StringVar(&initDataDir, "data", "data", "repository database directory")
	initCmd.Flags().StringVar(&initIndexDir, "index", "index", "search index directory")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	if err := svc.SetStorageBackend(domain.BackendSQLite, initDataDir); err != nil {
		return err
	}
	if err := svc.SetIndexBackend(domain.BackendSQLite, initIndexDir); err != nil {
		return err
	}
	cmd.Printf("Repository initialised (data: %s, index: %s)\n", initDataDir, initIndexDir)
	return nil
}
