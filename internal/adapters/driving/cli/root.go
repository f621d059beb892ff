// Package cli implements the xcmis command line on top of the repository
// connection.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xcmis/internal/adapters/driven/index"
	"github.com/custodia-labs/xcmis/internal/core/ports/driving"
	"github.com/custodia-labs/xcmis/internal/logger"
)

// version is set at build time.
var version = "dev"

// Command annotations controlling what is opened before a command runs.
const (
	annotationOffline  = "offline"
	annotationSettings = "settings"
)

// IndexAdmin exposes index maintenance.
type IndexAdmin interface {
	Stats(ctx context.Context) (index.Stats, error)
	Flush(ctx context.Context) error
}

// TypeWatcher keeps the type registry in sync with the types file.
type TypeWatcher interface {
	Reload(ctx context.Context) (int, error)
	Run(ctx context.Context) error
}

// Services are the ports the commands drive.
type Services struct {
	Connection driving.Connection
	Settings   driving.SettingsService
	Index      IndexAdmin
	Types      TypeWatcher
	Close      func() error
}

// Opener opens the repository configured in configDir. With settingsOnly
// only the settings service is required.
type Opener func(ctx context.Context, configDir string, settingsOnly bool) (*Services, error)

var (
	configDir string
	verbose   bool

	opener   Opener
	services *Services
	opened   bool
)

var rootCmd = &cobra.Command{
	Use:   "xcmis",
	Short: "A CMIS content repository",
	Long: `xcmis stores documents, folders, policies and relationships following the
CMIS object model, with versioning, multi-filing and full-text search.

Objects are addressed by path (starting with /) or by object id.`,
	SilenceUsage:      true,
	PersistentPreRunE: openServices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default ~/.xcmis)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetOpener registers how the repository is opened on first use.
func SetOpener(o Opener) {
	opener = o
}

// SetServices installs already opened services. They are not closed by
// Execute.
func SetServices(s *Services) {
	services = s
	opened = false
}

// Execute runs the root command and closes the repository afterwards.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(rootCmd.OutOrStdout())
	err := rootCmd.ExecuteContext(ctx)
	return errors.Join(err, closeServices())
}

func openServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if cmd.Annotations[annotationOffline] == "true" || services != nil {
		return nil
	}
	if opener == nil {
		return errors.New("repository not configured")
	}
	s, err := opener(cmd.Context(), configDir, cmd.Annotations[annotationSettings] == "true")
	if err != nil {
		return err
	}
	services = s
	opened = true
	return nil
}

func closeServices() error {
	if !opened || services == nil {
		return nil
	}
	s := services
	services = nil
	opened = false
	if s.Close == nil {
		return nil
	}
	return s.Close()
}

func connection() (driving.Connection, error) {
	if services == nil || services.Connection == nil {
		return nil, errors.New("repository not configured")
	}
	return services.Connection, nil
}

func settingsService() (driving.SettingsService, error) {
	if services == nil || services.Settings == nil {
		return nil, errors.New("settings service not configured")
	}
	return services.Settings, nil
}
