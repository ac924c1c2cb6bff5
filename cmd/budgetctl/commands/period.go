package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func periodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Inspect the budget period",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the budget period bounds",
		Args:  cobra.NoArgs,
		RunE: withServices(func(cmd *cobra.Command, args []string) error {
			start, end := svc.Period.Bounds()
			fmt.Fprintf(out(cmd), "start: %s\nend:   %s\n", start, end)
			return nil
		}),
	})
	return cmd
}
