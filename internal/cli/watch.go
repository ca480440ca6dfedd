package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"flowvault/internal/autosave"
	"flowvault/internal/daemon"
)

func newWatchCmd() *cobra.Command {
	var flagFlow string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a flow file and snapshot on every settled edit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logSvc, st, err := setup()
			if err != nil {
				return err
			}
			defer logSvc.Close()
			defer st.Close()

			flowPath := strings.TrimSpace(flagFlow)
			if flowPath == "" {
				flowPath = strings.TrimSpace(cfg.Watch.FlowPath)
			}
			if flowPath == "" {
				return fmt.Errorf("no flow file: pass --flow or set watch.flow_path")
			}

			log := logSvc.Logger()
			svc := autosave.New(st, log, nil)
			d := daemon.New(daemon.Config{
				FlowPath:    flowPath,
				Debounce:    cfg.Debounce(),
				MinInterval: cfg.MinInterval(),
				Schedule:    cfg.Watch.Schedule,
			}, svc, log)

			return d.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&flagFlow, "flow", "", "Path to the flow JSON file")
	return cmd
}
