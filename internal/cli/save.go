package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"flowvault/internal/flow"
	"flowvault/internal/snapshot"
)

func newSaveCmd() *cobra.Command {
	var flagFlow string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save one snapshot of a flow file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logSvc, st, err := setup()
			if err != nil {
				return err
			}
			defer logSvc.Close()
			defer st.Close()

			path := strings.TrimSpace(flagFlow)
			if path == "" {
				path = strings.TrimSpace(cfg.Watch.FlowPath)
			}
			if path == "" {
				return fmt.Errorf("no flow file: pass --flow or set watch.flow_path")
			}

			f, err := flow.Load(path)
			if err != nil {
				return err
			}

			snap := snapshot.New(time.Now(), flow.Flow{
				Nodes: flow.SanitizeNodes(f.Nodes),
				Edges: f.Edges,
			})
			stored, err := st.Save(cmd.Context(), snap)
			if err != nil {
				return fmt.Errorf("saving snapshot: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved snapshot %s (%s): %d nodes, %d edges\n",
				stored.ID, stored.DateStr, len(stored.Flow.Nodes), len(stored.Flow.Edges))
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFlow, "flow", "", "Path to the flow JSON file")
	return cmd
}
