// Package cli wires the flowvault commands: save, list, clear, watch.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowvault/internal/config"
	"flowvault/internal/snapshot"
	logx "flowvault/pkg/logx"
)

var flagConfig string

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flowvault",
		Short: "Rolling snapshot store for editor flow graphs",
		Long: `flowvault keeps a bounded history of flow graph snapshots in local
storage, evicting the oldest when the window overflows.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (yaml or json)")

	cmd.AddCommand(newSaveCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

// setup loads config, builds logging, and opens the snapshot store.
// Callers own both returned Close()s.
func setup() (*config.Config, *logx.Service, snapshot.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleLogging(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	st, err := snapshot.Open(snapshot.Config{
		Driver:       cfg.Storage.Driver,
		Path:         cfg.Storage.Path,
		MaxSnapshots: cfg.Retention.MaxSnapshots,
		BusyTimeout:  cfg.BusyTimeout(),
	}, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, nil, nil, fmt.Errorf("opening snapshot store: %w", err)
	}
	return cfg, logSvc, st, nil
}
