package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"flowvault/internal/snapshot"
)

func newListCmd() *cobra.Command {
	var flagFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(strings.TrimSpace(flagFormat))
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
			}

			_, logSvc, st, err := setup()
			if err != nil {
				return err
			}
			defer logSvc.Close()
			defer st.Close()

			snaps, err := st.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing snapshots: %w", err)
			}

			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), snaps)
			}
			writeText(cmd.OutOrStdout(), snaps)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	return cmd
}

func writeJSON(w io.Writer, snaps []snapshot.Snapshot) error {
	if snaps == nil {
		snaps = []snapshot.Snapshot{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snaps)
}

func writeText(w io.Writer, snaps []snapshot.Snapshot) {
	if len(snaps) == 0 {
		fmt.Fprintln(w, "no snapshots")
		return
	}
	for _, sn := range snaps {
		fmt.Fprintf(w, "%s  %-24s  %d nodes, %d edges\n",
			sn.ID, sn.DateStr, len(sn.Flow.Nodes), len(sn.Flow.Edges))
	}
}
