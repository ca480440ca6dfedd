package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logSvc, st, err := setup()
			if err != nil {
				return err
			}
			defer logSvc.Close()
			defer st.Close()

			if err := st.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clearing snapshots: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "snapshots cleared")
			return nil
		},
	}
}
