// Command xcmis is the command line front end of the repository.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/xcmis/internal/adapters/driven/config/file"
	"github.com/custodia-labs/xcmis/internal/adapters/driving/cli"
	"github.com/custodia-labs/xcmis/internal/app"
	"github.com/custodia-labs/xcmis/internal/core/services"
)

func main() {
	cli.SetOpener(open)
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}

func open(ctx context.Context, configDir string, settingsOnly bool) (*cli.Services, error) {
	if settingsOnly {
		cfg, err := file.NewConfigStore(configDir)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return &cli.Services{Settings: services.NewSettingsService(cfg)}, nil
	}

	a, err := app.Open(ctx, configDir)
	if err != nil {
		return nil, err
	}
	s := &cli.Services{
		Connection: a.Storage,
		Settings:   a.Settings,
		Index:      a.Index,
		Close:      a.Close,
	}
	if a.Types != nil {
		s.Types = a.Types
	}
	return s, nil
}
