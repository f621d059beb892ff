package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:         "settings",
	Short:       "Manage repository settings",
	Long:        `View and configure the storage and index backends and other options.`,
	Annotations: map[string]string{annotationSettings: "true"},
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: map[string]string{annotationSettings: "true"},
	RunE:        runSettingsShow,
}

var settingsStorageCmd = &cobra.Command{
	Use:   "storage [backend] [path]",
	Short: "Set the repository backend",
	Long: `Set the repository backend:
  memory  - nothing is kept after the command exits
  sqlite  - a SQLite database in the given directory`,
	Annotations: map[string]string{annotationSettings: "true"},
	Args:        cobra.RangeArgs(1, 2),
	RunE:        runSettingsStorage,
}

var settingsIndexCmd = &cobra.Command{
	Use:         "index [backend] [path]",
	Short:       "Set the search index backend",
	Annotations: map[string]string{annotationSettings: "true"},
	Args:        cobra.RangeArgs(1, 2),
	RunE:        runSettingsIndex,
}

var settingsWizardCmd = &cobra.Command{
	Use:         "wizard",
	Short:       "Interactive setup wizard",
	Annotations: map[string]string{annotationSettings: "true"},
	RunE:        runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsStorageCmd, settingsIndexCmd, settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend.Description())
	if settings.Storage.Path != "" {
		cmd.Printf("  Path: %s\n", settings.Storage.Path)
	}
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Backend: %s\n", settings.Index.Backend.Description())
	if settings.Index.Path != "" {
		cmd.Printf("  Path: %s\n", settings.Index.Path)
	}
	cmd.Printf("  Merge threshold: %d\n", settings.Index.MergeThreshold)
	cmd.Printf("  Flush threshold: %d\n", settings.Index.FlushThreshold)
	cmd.Println()

	cmd.Println("[Repository]")
	cmd.Printf("  User: %s\n", settings.User)
	cmd.Printf("  Preview length: %d\n", settings.Rendition.PreviewLength)
	if settings.TypesFile != "" {
		cmd.Printf("  Types file: %s\n", settings.TypesFile)
	}
	cmd.Println()

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'xcmis settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func backendArgs(args []string) (domain.Backend, string, error) {
	backend := domain.Backend(strings.ToLower(args[0]))
	if !backend.IsValid() {
		return "", "", fmt.Errorf("unknown backend %q", args[0])
	}
	var path string
	if len(args) == 2 {
		path = args[1]
	}
	return backend, path, nil
}

func runSettingsStorage(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	backend, path, err := backendArgs(args)
	if err != nil {
		return err
	}
	if err := svc.SetStorageBackend(backend, path); err != nil {
		return err
	}
	cmd.Printf("Storage backend set to: %s\n", backend.Description())
	return nil
}

func runSettingsIndex(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	backend, path, err := backendArgs(args)
	if err != nil {
		return err
	}
	if err := svc.SetIndexBackend(backend, path); err != nil {
		return err
	}
	cmd.Printf("Index backend set to: %s\n", backend.Description())
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return err
	}

	cmd.Println("xcmis Settings Wizard")
	cmd.Println("=====================")
	cmd.Println()
	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Repository storage")
	settings.Storage.Backend, settings.Storage.Path = chooseBackend(cmd, reader, settings.Storage.Backend, settings.Storage.Path, "data")

	cmd.Println("Step 2: Search index")
	settings.Index.Backend, settings.Index.Path = chooseBackend(cmd, reader, settings.Index.Backend, settings.Index.Path, "index")

	cmd.Println("Step 3: Repository user")
	cmd.Printf("User [%s]: ", settings.User)
	if user := readLine(reader); user != "" {
		settings.User = user
	}
	cmd.Println()

	if err := svc.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}
	return nil
}

func chooseBackend(cmd *cobra.Command, reader *bufio.Reader, current domain.Backend, path, defaultPath string) (domain.Backend, string) {
	backends := domain.AllBackends()
	def := 1
	for i, b := range backends {
		if b == current {
			def = i + 1
		}
		cmd.Printf("  %d. %s\n", i+1, b.Description())
	}
	cmd.Printf("Enter choice [%d]: ", def)
	backend := backends[parseChoice(readLine(reader), len(backends), def)-1]

	if backend == domain.BackendSQLite {
		if path == "" {
			path = defaultPath
		}
		cmd.Printf("Directory [%s]: ", path)
		if p := readLine(reader); p != "" {
			path = p
		}
	}
	cmd.Println()
	return backend, path
}

func readLine(reader *bufio.Reader) string {
	input, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return ""
	}
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}
